package manifest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/chararch/bulkop/store"
	"github.com/pkg/errors"
)

const (
	CSV  = "csv"
	JSON = "json"
)

// MaxLineSize longest json line accepted in a manifest
const MaxLineSize = 16 << 20

// Entry one line of a manifest, the id is required and the other columns are used by imports
type Entry struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	ConsignorID string `json:"consignor_id,omitempty"`
	Status      string `json:"status,omitempty"`
	PriceCents  int64  `json:"price_cents,omitempty"`
}

func (e Entry) EntityID() string {
	return e.ID
}

func (e Entry) EntityLabel() string {
	if e.Title == "" {
		return e.ID
	}
	return e.Title
}

// Item convert the entry to a store item, an empty status means pending
func (e Entry) Item() (*store.Item, error) {
	it := &store.Item{ID: e.ID, Title: e.Title, ConsignorID: e.ConsignorID, PriceCents: e.PriceCents, Status: store.StatusPending}
	if e.Status != "" {
		st, err := store.ParseStatus(e.Status)
		if err != nil {
			return nil, errors.Wrapf(err, "entry:%v", e.ID)
		}
		it.Status = st
	}
	return it, nil
}

// IDs ids of entries, in order
func IDs(entries []Entry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// FormatOf detect the manifest format from the file extension, .csv is CSV and .json/.jsonl/.ndjson are JSON lines
func FormatOf(fileName string) (string, error) {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".csv":
		return CSV, nil
	case ".json", ".jsonl", ".ndjson":
		return JSON, nil
	}
	return "", errors.Errorf("unsupported manifest format:%v", fileName)
}

// Read verify and decode a manifest
func Read(fs FileSystem, fileName string) ([]Entry, error) {
	format, err := FormatOf(fileName)
	if err != nil {
		return nil, err
	}
	if err = VerifyMD5(fs, fileName); err != nil {
		return nil, err
	}
	reader, err := fs.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "open manifest %v failed", fileName)
	}
	defer reader.Close()
	if format == CSV {
		return decodeCSV(reader)
	}
	return decodeJSONLines(reader)
}

func decodeCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read manifest header failed")
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := columns["id"]; !ok {
		return nil, errors.New("manifest has no id column")
	}
	cr.FieldsPerRecord = len(header)
	entries := make([]Entry, 0)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read manifest failed")
		}
		line, _ := cr.FieldPos(0)
		col := func(name string) string {
			if i, ok := columns[name]; ok {
				return strings.TrimSpace(record[i])
			}
			return ""
		}
		e := Entry{ID: col("id"), Title: col("title"), ConsignorID: col("consignor_id"), Status: col("status")}
		if price := col("price_cents"); price != "" {
			if e.PriceCents, err = strconv.ParseInt(price, 10, 64); err != nil {
				return nil, errors.Wrapf(err, "line %d: invalid price_cents", line)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeJSONLines(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	entries := make([]Entry, 0)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, errors.Wrapf(err, "line %d: invalid json", line)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read manifest failed")
	}
	return entries, nil
}
