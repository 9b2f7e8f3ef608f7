package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/roach88/ordex/internal/notify"
	"github.com/roach88/ordex/internal/ordered"
)

// SortFixture is the input of the sort command.
type SortFixture struct {
	Entries []SortEntry `yaml:"entries"`
}

// SortEntry is one key/value pair. Keys must be strings.
type SortEntry struct {
	Key   any `yaml:"key" json:"key"`
	Value any `yaml:"value" json:"value"`
}

// SortResult is the output of the sort command.
type SortResult struct {
	Direction string       `json:"direction"`
	Collation string       `json:"collation,omitempty"`
	Entries   []SortEntry  `json:"entries"`
	Events    []EventCount `json:"events"`
}

func (r SortResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sorted %d entries %s", len(r.Entries), r.Direction)
	if r.Collation != "" {
		fmt.Fprintf(&b, " (collation %s)", r.Collation)
	}
	b.WriteString("\n")
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "  %v: %v\n", e.Key, e.Value)
	}
	b.WriteString("events:")
	for _, ev := range r.Events {
		fmt.Fprintf(&b, " %s=%d", ev.Action, ev.Count)
	}
	return b.String()
}

// NewSortCommand creates the sort command.
func NewSortCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		desc    bool
		collate string
	)

	cmd := &cobra.Command{
		Use:   "sort <fixture.yaml>",
		Short: "Load entries into an ordered store and reorder them",
		Long: `Load the fixture's entries into an ordered store, in file order, then
reorder the keys and print the result.

Keys compare by byte order unless --collate names a BCP 47 language tag.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(rootOpts, cmd)
			if err != nil {
				return err
			}
			return runSort(e, args[0], desc, collate)
		},
	}

	cmd.Flags().BoolVarP(&desc, "desc", "d", false, "sort in descending order")
	cmd.Flags().StringVar(&collate, "collate", "", "language tag for locale-aware ordering (e.g. de, sv)")

	return cmd
}

func runSort(e *env, path string, desc bool, collation string) error {
	var fixture SortFixture
	if err := loadFixture(e.formatter, path, &fixture); err != nil {
		return err
	}

	cmp := ordered.Natural[string]()
	if collation != "" {
		tag, err := language.Parse(collation)
		if err != nil {
			return commandError(e.formatter, ErrCodeGeneric, fmt.Sprintf("invalid collation %q: %v", collation, err), nil)
		}
		cmp = ordered.Collated(tag)
	}
	dir := ordered.Ascending
	if desc {
		dir = ordered.Descending
	}

	exec, wait := newExecutor(e.cfg.Router, e.log)
	router := notify.NewRouter[ordered.Entry[string, any]](
		notify.WithLogger(e.log),
		notify.WithDefaultExecutor(exec),
		notify.WithHeld(e.cfg.Router.Held),
	)
	tally := newEventTally[ordered.Entry[string, any]]()
	router.Subscribe(nil, notify.NewHandlerID(), tally)

	store := ordered.New(
		ordered.WithRouter(router),
		ordered.WithLogger[string, any](e.log),
		ordered.WithCapacity[string, any](len(fixture.Entries)),
	)
	untyped := ordered.NewUntyped(store)
	for i, entry := range fixture.Entries {
		if err := untyped.AddAny(entry.Key, entry.Value); err != nil {
			e.log.Debug("entry rejected", "index", i, "error", err)
			return domainError(e.formatter, fmt.Errorf("entries[%d]: %w", i, err))
		}
	}

	if err := store.Reorder(cmp, dir); err != nil {
		return domainError(e.formatter, err)
	}

	if router.Held() {
		router.Release()
	}
	wait()

	result := SortResult{
		Direction: dir.String(),
		Collation: collation,
		Events:    tally.snapshot(),
	}
	for k, v := range store.All() {
		result.Entries = append(result.Entries, SortEntry{Key: k, Value: v})
	}
	return e.formatter.Success(result)
}
