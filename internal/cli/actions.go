package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chararch/bulkop"
	"github.com/chararch/bulkop/manifest"
	"github.com/chararch/bulkop/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	ActionStatusChange = "status_change"
	ActionSendBack     = "send_back"
	ActionDiscount     = "discount"
	ActionImport       = "import"
)

// selection how the items of an action are chosen
type selection struct {
	ids      []string
	manifest string
	ftp      bool
}

func (s *selection) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&s.ids, "ids", nil, "comma separated item ids")
	cmd.Flags().StringVar(&s.manifest, "manifest", "", "CSV or JSON lines file listing the items")
	cmd.Flags().BoolVar(&s.ftp, "ftp", false, "read the manifest from the configured FTP server")
}

func (s *selection) validate() error {
	if len(s.ids) > 0 && s.manifest != "" {
		return errors.New("--ids and --manifest are mutually exclusive")
	}
	if s.ftp && s.manifest == "" {
		return errors.New("--ftp requires --manifest")
	}
	return nil
}

func (s *selection) entries(a *app) ([]manifest.Entry, error) {
	if s.manifest == "" {
		entries := make([]manifest.Entry, 0, len(s.ids))
		for _, id := range s.ids {
			entries = append(entries, manifest.Entry{ID: id})
		}
		return entries, nil
	}
	return manifest.Read(a.fileSystem(s.ftp), s.manifest)
}

// entities selected stored items, in the order given
func (s *selection) entities(ctx context.Context, a *app) ([]bulkop.Entity, error) {
	entries, err := s.entries(a)
	if err != nil {
		return nil, err
	}
	return a.lookupEntities(ctx, manifest.IDs(entries))
}

// action what a command hands to runAction
type action struct {
	name       string
	operation  bulkop.Operation
	validators []interface{}
	params     map[string]interface{}
	entities   []bulkop.Entity
}

func newStatusCmd(cfgPath *string) *cobra.Command {
	var sel selection
	var to string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Move items to another status",
		Example: `  bulkop status --to live --ids A-1,A-2
  bulkop status --to archived --manifest unsold.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := store.ParseStatus(to)
			if err != nil {
				return err
			}
			return withApp(cmd, *cfgPath, &sel, func(ctx context.Context, a *app) (*action, error) {
				entities, err := sel.entities(ctx, a)
				if err != nil {
					return nil, err
				}
				return &action{
					name:       ActionStatusChange,
					operation:  store.StatusOperation(a.store, target),
					validators: []interface{}{store.RequireExists(ctx, a.store), store.AllowTransition(target)},
					params:     map[string]interface{}{"to": string(target)},
					entities:   entities,
				}, nil
			})
		},
	}
	sel.bind(cmd)
	cmd.Flags().StringVar(&to, "to", "", "target status: pending, approved, live, sold or archived")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSendBackCmd(cfgPath *string) *cobra.Command {
	var sel selection
	cmd := &cobra.Command{
		Use:     "send-back",
		Short:   "Send items back to pending review",
		Example: `  bulkop send-back --ids A-1,A-2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *cfgPath, &sel, func(ctx context.Context, a *app) (*action, error) {
				entities, err := sel.entities(ctx, a)
				if err != nil {
					return nil, err
				}
				return &action{
					name:       ActionSendBack,
					operation:  store.SendBackOperation(a.store),
					validators: []interface{}{store.RequireExists(ctx, a.store), store.AllowTransition(store.StatusPending)},
					entities:   entities,
				}, nil
			})
		},
	}
	sel.bind(cmd)
	return cmd
}

func newDiscountCmd(cfgPath *string) *cobra.Command {
	var sel selection
	var percent int
	cmd := &cobra.Command{
		Use:     "discount",
		Short:   "Apply a discount to approved or live items",
		Example: `  bulkop discount --percent 20 --manifest summer_sale.csv --ftp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *cfgPath, &sel, func(ctx context.Context, a *app) (*action, error) {
				entities, err := sel.entities(ctx, a)
				if err != nil {
					return nil, err
				}
				return &action{
					name:       ActionDiscount,
					operation:  store.DiscountOperation(a.store, percent),
					validators: []interface{}{store.RequireExists(ctx, a.store), store.RequireDiscountable(percent)},
					params:     map[string]interface{}{"percent": percent},
					entities:   entities,
				}, nil
			})
		},
	}
	sel.bind(cmd)
	cmd.Flags().IntVar(&percent, "percent", 0, "discount in percent")
	_ = cmd.MarkFlagRequired("percent")
	return cmd
}

func newImportCmd(cfgPath *string) *cobra.Command {
	var sel selection
	cmd := &cobra.Command{
		Use:     "import",
		Short:   "Create or overwrite items listed in a manifest",
		Example: `  bulkop import --manifest intake_2026_10.jsonl`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sel.manifest == "" {
				return errors.New("import requires --manifest")
			}
			return withApp(cmd, *cfgPath, &sel, func(ctx context.Context, a *app) (*action, error) {
				entries, err := sel.entries(a)
				if err != nil {
					return nil, err
				}
				entities := make([]bulkop.Entity, 0, len(entries))
				items := make([]*store.Item, 0, len(entries))
				for _, e := range entries {
					entities = append(entities, e)
					if it, er := e.Item(); er == nil {
						items = append(items, it)
					}
				}
				return &action{
					name:       ActionImport,
					operation:  store.ImportOperation(a.store, items),
					validators: []interface{}{bulkop.RequireID(), validEntry},
					params:     map[string]interface{}{"manifest": sel.manifest},
					entities:   entities,
				}, nil
			})
		},
	}
	sel.bind(cmd)
	return cmd
}

func validEntry(entity bulkop.Entity) []string {
	e, ok := entity.(manifest.Entry)
	if !ok {
		return nil
	}
	if _, err := e.Item(); err != nil {
		return []string{errors.Cause(err).Error()}
	}
	return nil
}

// withApp open the app, build the action and run it
func withApp(cmd *cobra.Command, cfgPath string, sel *selection, build func(ctx context.Context, a *app) (*action, error)) error {
	if err := sel.validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfgPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	act, err := build(ctx, a)
	if err != nil {
		return err
	}
	return runAction(ctx, cmd, a, act)
}

func runAction(ctx context.Context, cmd *cobra.Command, a *app, act *action) error {
	con := newConsole(cmd.OutOrStdout())
	builder := a.processor(act.name).Operation(act.operation).Validator(act.validators...).Listener(con)
	for k, v := range act.params {
		builder.Param(k, v)
	}
	p := builder.Build()
	if err := bulkop.Register(p); err != nil {
		return err
	}
	defer bulkop.Unregister(p)

	result, err := bulkop.Start(ctx, act.name, act.entities)
	if violations := bulkop.Violations(err); len(violations) > 0 {
		con.violations(violations)
		return errors.Errorf("%d validation error(s)", len(violations))
	}
	if err != nil {
		return err
	}
	con.summary(result.Snapshot)
	fmt.Fprintf(cmd.OutOrStdout(), "run id: %s\n", result.Snapshot.RunID)
	if n := result.Snapshot.Progress.Errors; n > 0 {
		return errors.Errorf("%d item(s) failed", n)
	}
	return nil
}
