package cli

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/ordex/internal/index"
	"github.com/roach88/ordex/internal/notify"
)

// IndexFixture is the input of the index command.
type IndexFixture struct {
	// Entities are the initial items of the source collection.
	Entities []map[string]any `yaml:"entities"`

	// Ops are applied in order after the index is built.
	Ops []IndexOp `yaml:"ops,omitempty"`
}

// IndexOp is one operation. Exactly one field is set.
type IndexOp struct {
	Add    map[string]any `yaml:"add,omitempty"`    // View.TryAddEntity
	Upsert map[string]any `yaml:"upsert,omitempty"` // View.TryAddOrUpdateEntity
	Remove map[string]any `yaml:"remove,omitempty"` // View.TryRemove
	Append map[string]any `yaml:"append,omitempty"` // appended to the source
}

func (op IndexOp) kind() (string, map[string]any, error) {
	var (
		name   string
		fields map[string]any
		set    int
	)
	for _, c := range []struct {
		name   string
		fields map[string]any
	}{
		{"add", op.Add}, {"upsert", op.Upsert}, {"remove", op.Remove}, {"append", op.Append},
	} {
		if c.fields != nil {
			name, fields = c.name, c.fields
			set++
		}
	}
	if set != 1 {
		return "", nil, fmt.Errorf("op must set exactly one of add, upsert, remove, append")
	}
	return name, fields, nil
}

// IndexResult is the output of the index command.
type IndexResult struct {
	Key      string        `json:"key"`
	Unique   bool          `json:"unique"`
	Entities int           `json:"entities"`
	Buckets  []IndexBucket `json:"buckets"`
	Ops      []OpResult    `json:"ops,omitempty"`
	Events   []EventCount  `json:"events"`
}

// IndexBucket is one bucket of the result.
type IndexBucket struct {
	Key   string    `json:"key"`
	Items []*Record `json:"items"`
}

// OpResult reports one applied operation.
type OpResult struct {
	Op     string  `json:"op"`
	Entity *Record `json:"entity"`
	OK     bool    `json:"ok"`
	Code   string  `json:"code,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// EventCount is the number of delivered change events of one action.
type EventCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

func (r IndexResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "index key=%s unique=%t entities=%d buckets=%d\n", r.Key, r.Unique, r.Entities, len(r.Buckets))
	for _, bucket := range r.Buckets {
		fmt.Fprintf(&b, "%s (%d)\n", bucket.Key, len(bucket.Items))
		for _, item := range bucket.Items {
			fmt.Fprintf(&b, "  %s\n", item)
		}
	}
	if len(r.Ops) > 0 {
		b.WriteString("ops:\n")
		for _, op := range r.Ops {
			status := "ok"
			switch {
			case op.Error != "":
				status = fmt.Sprintf("%s %s", op.Code, op.Error)
			case !op.OK:
				status = "no-op"
			}
			fmt.Fprintf(&b, "  %s %s: %s\n", op.Op, op.Entity, status)
		}
	}
	b.WriteString("events:")
	for _, ev := range r.Events {
		fmt.Fprintf(&b, " %s=%d", ev.Action, ev.Count)
	}
	return b.String()
}

// eventTally counts delivered change events per action.
type eventTally[T any] struct {
	mu     sync.Mutex
	counts map[notify.Action]int
}

func newEventTally[T any]() *eventTally[T] {
	return &eventTally[T]{counts: make(map[notify.Action]int)}
}

func (t *eventTally[T]) CollectionChanged(ev notify.ChangeEvent[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[ev.Action]++
}

func (t *eventTally[T]) PropertyChanged(notify.PropertyChange) {}

func (t *eventTally[T]) snapshot() []EventCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []EventCount
	for _, a := range []notify.Action{notify.ActionAdd, notify.ActionRemove, notify.ActionReplace, notify.ActionMove, notify.ActionReset} {
		if n := t.counts[a]; n > 0 {
			out = append(out, EventCount{Action: a.String(), Count: n})
		}
	}
	return out
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		key      string
		identity string
		unique   bool
	)

	cmd := &cobra.Command{
		Use:   "index <fixture.yaml>",
		Short: "Build a secondary index over a fixture and apply operations",
		Long: `Build a secondary index over the fixture's entities, grouped by a key
field, then apply the fixture's add/upsert/remove/append operations and
print the resulting buckets.

Flags override the index section of the config file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(rootOpts, cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("key") {
				e.cfg.Index.KeyField = key
			}
			if cmd.Flags().Changed("identity") {
				e.cfg.Index.IdentityField = identity
			}
			if cmd.Flags().Changed("unique") {
				e.cfg.Index.Unique = unique
			}
			return runIndex(e, args[0])
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "entity field to index by")
	cmd.Flags().StringVar(&identity, "identity", "", "entity field that decides equality")
	cmd.Flags().BoolVarP(&unique, "unique", "u", false, "reject entities equal to an indexed one")

	return cmd
}

func runIndex(e *env, path string) error {
	var fixture IndexFixture
	if err := loadFixture(e.formatter, path, &fixture); err != nil {
		return err
	}

	records := make([]*Record, 0, len(fixture.Entities))
	for i, fields := range fixture.Entities {
		r, err := newRecord(fields)
		if err != nil {
			return commandError(e.formatter, ErrCodeParse, fmt.Sprintf("entities[%d]: %v", i, err), nil)
		}
		records = append(records, r)
	}
	e.formatter.VerboseLog("Loaded %d entities from %s", len(records), path)

	exec, wait := newExecutor(e.cfg.Router, e.log)
	router := notify.NewRouter[*Record](
		notify.WithLogger(e.log),
		notify.WithDefaultExecutor(exec),
		notify.WithHeld(e.cfg.Router.Held),
	)
	tally := newEventTally[*Record]()
	router.Subscribe(nil, notify.NewHandlerID(), tally)

	source := index.NewObservableSlice(e.log, records...)
	view, err := index.New(source, recordKey(e.cfg.Index.KeyField),
		index.WithUnique(e.cfg.Index.Unique),
		index.WithEquality(recordEquality(e.cfg.Index.IdentityField)),
		index.WithRouter(router),
		index.WithLogger(e.log),
		index.WithPageSize(e.cfg.Bucket.PageSize),
		index.WithCompaction(e.cfg.Bucket.CompactMin, e.cfg.Bucket.CompactRatio),
	)
	if err != nil {
		return domainError(e.formatter, err)
	}
	defer view.Close()

	results := make([]OpResult, 0, len(fixture.Ops))
	for i, op := range fixture.Ops {
		kind, fields, err := op.kind()
		if err != nil {
			return commandError(e.formatter, ErrCodeParse, fmt.Sprintf("ops[%d]: %v", i, err), nil)
		}
		r, err := newRecord(fields)
		if err != nil {
			return commandError(e.formatter, ErrCodeParse, fmt.Sprintf("ops[%d]: %v", i, err), nil)
		}
		results = append(results, applyIndexOp(view, source, kind, r))
	}

	if router.Held() {
		router.Release()
	}
	wait()

	result := IndexResult{
		Key:      e.cfg.Index.KeyField,
		Unique:   e.cfg.Index.Unique,
		Entities: view.Len(),
		Ops:      results,
		Events:   tally.snapshot(),
	}
	for _, g := range view.Snapshot() {
		result.Buckets = append(result.Buckets, IndexBucket{Key: g.Key, Items: g.Items})
	}

	e.log.Debug("index command finished", "entities", result.Entities, "buckets", len(result.Buckets))
	return e.formatter.Success(result)
}

func applyIndexOp(view *index.View[*Record, string], source *index.ObservableSlice[*Record], kind string, r *Record) OpResult {
	res := OpResult{Op: kind, Entity: r}
	switch kind {
	case "add":
		ok, err := view.TryAddEntity(r)
		res.OK = ok
		if err != nil {
			res.Code = CodeFor(err)
			res.Error = err.Error()
		}
	case "upsert":
		res.OK, _ = view.TryAddOrUpdateEntity(r)
	case "remove":
		res.OK, _ = view.TryRemove(r)
	case "append":
		source.Append(r)
		res.OK = true
	}
	return res
}
