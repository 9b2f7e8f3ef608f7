package cli

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/ordex/internal/notify"
)

// ConsolidateFixture is the input of the consolidate command.
type ConsolidateFixture struct {
	Events     []EventSpec    `yaml:"events"`
	Properties []PropertySpec `yaml:"properties,omitempty"`
}

// EventSpec describes one change event. Items is shorthand for the item
// list the action implies: NewItems for add and move, OldItems for remove.
type EventSpec struct {
	Action string   `yaml:"action"`
	Items  []string `yaml:"items,omitempty"`
	New    []string `yaml:"new,omitempty"`
	Old    []string `yaml:"old,omitempty"`
}

// PropertySpec describes one property change.
type PropertySpec struct {
	Source string `yaml:"source"`
	Name   string `yaml:"name"`
}

// ConsolidateResult is the output of the consolidate command.
type ConsolidateResult struct {
	Posted     int            `json:"posted"`
	Events     []EventView    `json:"events"`
	Properties []PropertySpec `json:"properties,omitempty"`
	Deliveries []EventCount   `json:"deliveries"`
}

// EventView is a delivered event.
type EventView struct {
	Action string   `json:"action"`
	New    []string `json:"new,omitempty"`
	Old    []string `json:"old,omitempty"`
}

func (r ConsolidateResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "posted %d events, delivered %d\n", r.Posted, len(r.Events))
	for _, ev := range r.Events {
		switch {
		case ev.Action == notify.ActionReplace.String():
			fmt.Fprintf(&b, "  %s(%s <- %s)\n", ev.Action, strings.Join(ev.New, ","), strings.Join(ev.Old, ","))
		case len(ev.New) > 0:
			fmt.Fprintf(&b, "  %s(%s)\n", ev.Action, strings.Join(ev.New, ","))
		default:
			fmt.Fprintf(&b, "  %s(%s)\n", ev.Action, strings.Join(ev.Old, ","))
		}
	}
	if len(r.Properties) > 0 {
		b.WriteString("properties:\n")
		for _, p := range r.Properties {
			fmt.Fprintf(&b, "  %s.%s\n", p.Source, p.Name)
		}
	}
	b.WriteString("deliveries:")
	for _, d := range r.Deliveries {
		fmt.Fprintf(&b, " %s=%d", d.Action, d.Count)
	}
	return b.String()
}

func parseAction(name string) (notify.Action, error) {
	for _, a := range []notify.Action{notify.ActionAdd, notify.ActionRemove, notify.ActionReplace, notify.ActionMove, notify.ActionReset} {
		if strings.EqualFold(name, a.String()) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}

func (s EventSpec) event() (notify.ChangeEvent[string], error) {
	action, err := parseAction(s.Action)
	if err != nil {
		return notify.ChangeEvent[string]{}, err
	}
	ev := notify.ChangeEvent[string]{Action: action, NewItems: s.New, OldItems: s.Old}
	if len(s.Items) > 0 {
		switch action {
		case notify.ActionRemove:
			ev.OldItems = append(ev.OldItems, s.Items...)
		case notify.ActionReplace, notify.ActionReset:
			return ev, fmt.Errorf("%s takes new/old, not items", s.Action)
		default:
			ev.NewItems = append(ev.NewItems, s.Items...)
		}
	}
	return ev, nil
}

// eventLog records delivered events and property changes in order.
type eventLog struct {
	mu     sync.Mutex
	events []EventView
	props  []PropertySpec
}

func (l *eventLog) CollectionChanged(ev notify.ChangeEvent[string]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, EventView{Action: ev.Action.String(), New: ev.NewItems, Old: ev.OldItems})
}

func (l *eventLog) PropertyChanged(pc notify.PropertyChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.props = append(l.props, PropertySpec{Source: fmt.Sprint(pc.Source), Name: pc.Name})
}

// NewConsolidateCommand creates the consolidate command.
func NewConsolidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consolidate <fixture.yaml>",
		Short: "Post events to a held router and print what release delivers",
		Long: `Post the fixture's change events and property changes to a router while
delivery is held, then release it and print the consolidated notifications.

Consecutive events with the same action merge into one; property changes
collapse to one per source and name.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(rootOpts, cmd)
			if err != nil {
				return err
			}
			return runConsolidate(e, args[0])
		},
	}
	return cmd
}

func runConsolidate(e *env, path string) error {
	var fixture ConsolidateFixture
	if err := loadFixture(e.formatter, path, &fixture); err != nil {
		return err
	}

	events := make([]notify.ChangeEvent[string], 0, len(fixture.Events))
	for i, spec := range fixture.Events {
		ev, err := spec.event()
		if err != nil {
			return commandError(e.formatter, ErrCodeParse, fmt.Sprintf("events[%d]: %v", i, err), nil)
		}
		events = append(events, ev)
	}

	exec, wait := newExecutor(e.cfg.Router, e.log)
	router := notify.NewRouter[string](
		notify.WithLogger(e.log),
		notify.WithDefaultExecutor(exec),
		notify.WithHeld(true),
	)
	log := &eventLog{}
	router.Subscribe(notify.Inline{}, "log", log)
	tally := newEventTally[string]()
	router.Subscribe(nil, "tally", tally)

	for _, ev := range events {
		router.Post(ev)
	}
	for _, p := range fixture.Properties {
		router.PostProperty(notify.PropertyChange{Source: p.Source, Name: p.Name})
	}
	pendingEvents, pendingProps := router.Pending()
	e.formatter.VerboseLog("Holding %d events and %d property changes", pendingEvents, pendingProps)

	router.Release()
	wait()

	return e.formatter.Success(ConsolidateResult{
		Posted:     len(events),
		Events:     log.events,
		Properties: log.props,
		Deliveries: tally.snapshot(),
	})
}
