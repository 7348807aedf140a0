package demo

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/retain/pkg/program"
	"github.com/vango-dev/retain/pkg/sub"
	"github.com/vango-dev/retain/pkg/vdom"
)

// Item is one todo entry. It is comparable so rows can be memoized.
type Item struct {
	ID   int
	Text string
	Done bool
}

// Filter selects which items are listed.
type Filter int

const (
	FilterAll Filter = iota
	FilterActive
	FilterDone
)

func (f Filter) String() string {
	switch f {
	case FilterActive:
		return "Active"
	case FilterDone:
		return "Done"
	}
	return "All"
}

func (f Filter) keep(it Item) bool {
	switch f {
	case FilterActive:
		return !it.Done
	case FilterDone:
		return it.Done
	}
	return true
}

// Model is the program state.
type Model struct {
	Items  []Item
	Draft  string
	Filter Filter
	NextID int

	ShowClock bool
	Now       time.Time
}

// Msg is implemented by every todo message.
type Msg interface{ todoMsg() }

type (
	// Typed carries the current draft text.
	Typed struct{ Text string }
	// Add appends the draft as a new item.
	Add struct{}
	// Toggle flips the done state of an item.
	Toggle struct{ ID int }
	// Remove deletes an item.
	Remove struct{ ID int }
	// ClearDone deletes every finished item.
	ClearDone struct{}
	// MoveUp swaps an item with its predecessor.
	MoveUp struct{ ID int }
	// SetFilter changes the visible items.
	SetFilter struct{ Filter Filter }
	// ToggleClock shows or hides the clock.
	ToggleClock struct{}
	// Tick is delivered by the clock subscription.
	Tick struct{ Now time.Time }
)

func (Typed) todoMsg()       {}
func (Add) todoMsg()         {}
func (Toggle) todoMsg()      {}
func (Remove) todoMsg()      {}
func (ClearDone) todoMsg()   {}
func (MoveUp) todoMsg()      {}
func (SetFilter) todoMsg()   {}
func (ToggleClock) todoMsg() {}
func (Tick) todoMsg()        {}

// Flags seeds the initial model.
type Flags struct {
	Items []string `json:"items"`
	Clock bool     `json:"clock"`
}

// Program returns the todo program.
func Program() program.Program[Model, Msg] {
	return program.Program[Model, Msg]{
		Init:          Init,
		Update:        Update,
		View:          View,
		Subscriptions: Subscriptions,
	}
}

// Init builds the first model. flags may be a Flags value or its JSON
// encoding; anything else starts an empty list.
func Init(flags any) (Model, program.Cmd) {
	var f Flags
	switch v := flags.(type) {
	case Flags:
		f = v
	case json.RawMessage:
		if len(v) > 0 {
			_ = json.Unmarshal(v, &f)
		}
	case []byte:
		_ = json.Unmarshal(v, &f)
	}

	m := Model{ShowClock: f.Clock}
	for _, text := range f.Items {
		m = m.add(text)
	}
	if m.ShowClock {
		return m, program.Message(Tick{Now: time.Now()})
	}
	return m, nil
}

func (m Model) add(text string) Model {
	text = strings.TrimSpace(text)
	if text == "" {
		return m
	}
	m.NextID++
	items := make([]Item, len(m.Items), len(m.Items)+1)
	copy(items, m.Items)
	m.Items = append(items, Item{ID: m.NextID, Text: text})
	return m
}

// mapItems returns a copy of the items with fn applied; fn returning false
// drops the item.
func (m Model) mapItems(fn func(Item) (Item, bool)) []Item {
	out := make([]Item, 0, len(m.Items))
	for _, it := range m.Items {
		if it, ok := fn(it); ok {
			out = append(out, it)
		}
	}
	return out
}

// Update folds msg into the model.
func Update(msg Msg, m Model) (Model, program.Cmd) {
	switch msg := msg.(type) {
	case Typed:
		m.Draft = msg.Text
	case Add:
		m = m.add(m.Draft)
		m.Draft = ""
	case Toggle:
		m.Items = m.mapItems(func(it Item) (Item, bool) {
			if it.ID == msg.ID {
				it.Done = !it.Done
			}
			return it, true
		})
	case Remove:
		m.Items = m.mapItems(func(it Item) (Item, bool) {
			return it, it.ID != msg.ID
		})
	case ClearDone:
		m.Items = m.mapItems(func(it Item) (Item, bool) {
			return it, !it.Done
		})
	case MoveUp:
		for i, it := range m.Items {
			if it.ID == msg.ID && i > 0 {
				items := append([]Item(nil), m.Items...)
				items[i-1], items[i] = items[i], items[i-1]
				m.Items = items
				break
			}
		}
	case SetFilter:
		m.Filter = msg.Filter
	case ToggleClock:
		m.ShowClock = !m.ShowClock
		if m.ShowClock {
			return m, program.Message(Tick{Now: time.Now()})
		}
	case Tick:
		m.Now = msg.Now
	}
	return m, nil
}

// Subscriptions installs the clock while it is shown.
func Subscriptions(m Model) []sub.Descriptor {
	if !m.ShowClock {
		return nil
	}
	return []sub.Descriptor{
		sub.Every("clock", time.Second, func(t time.Time) any { return Tick{Now: t} }),
	}
}

// Remaining counts unfinished items.
func (m Model) Remaining() int {
	n := 0
	for _, it := range m.Items {
		if !it.Done {
			n++
		}
	}
	return n
}

// View renders the model.
func View(m Model) *vdom.Node {
	rows := make([]vdom.KeyedChild, 0, len(m.Items))
	for _, it := range m.Items {
		if m.Filter.keep(it) {
			rows = append(rows, vdom.Key(strconv.Itoa(it.ID), vdom.Lazy(viewItem, it)))
		}
	}

	return vdom.Section(vdom.Class("todoapp"),
		vdom.Header(
			vdom.H1("todos"),
			vdom.Form(vdom.ID("new-todo"), vdom.OnSubmit(Add{}),
				vdom.Input(
					vdom.ID("draft"),
					vdom.Placeholder("What needs to be done?"),
					vdom.Autofocus(),
					vdom.Value(m.Draft),
					vdom.OnInput(func(s string) any { return Typed{Text: s} }),
				),
			),
		),
		vdom.KeyedElement("ul", []vdom.Prop{vdom.Class("todo-list")}, rows),
		vdom.Footer(
			vdom.Span(vdom.ID("count"), vdom.Text(countLabel(m.Remaining()))),
			vdom.Map(func(f Filter) Msg { return SetFilter{Filter: f} }, filterBar(m.Filter)),
			vdom.If(len(m.Items) > m.Remaining(),
				vdom.Button(vdom.ID("clear"), vdom.OnClick(ClearDone{}), "Clear done")),
			vdom.Button(vdom.ID("clock-toggle"), vdom.OnClick(ToggleClock{}), clockLabel(m.ShowClock)),
			vdom.If(m.ShowClock, vdom.Span(vdom.ID("clock"), vdom.Text(m.Now.Format("15:04:05")))),
		),
	)
}

func viewItem(it Item) *vdom.Node {
	id := strconv.Itoa(it.ID)
	return vdom.Li(
		vdom.ID("item-"+id),
		vdom.ClassIf(it.Done, "done"),
		vdom.Input(
			vdom.Type("checkbox"),
			vdom.ID("toggle-"+id),
			vdom.Checked(it.Done),
			vdom.OnClick(Toggle{ID: it.ID}),
		),
		vdom.Label(vdom.Text(it.Text)),
		vdom.Button(vdom.ID("up-"+id), vdom.TitleAttr("Move up"), vdom.OnClick(MoveUp{ID: it.ID}), "↑"),
		vdom.Button(vdom.ID("remove-"+id), vdom.Class("destroy"), vdom.OnClick(Remove{ID: it.ID}), "×"),
	)
}

// filterBar emits bare Filter values; View lifts them into SetFilter.
func filterBar(current Filter) *vdom.Node {
	links := make([]*vdom.Node, 0, 3)
	for _, f := range []Filter{FilterAll, FilterActive, FilterDone} {
		links = append(links, vdom.Li(
			vdom.A(
				vdom.ID("filter-"+strings.ToLower(f.String())),
				vdom.ClassIf(f == current, "selected"),
				vdom.OnClick(f),
				f.String(),
			),
		))
	}
	return vdom.Ul(vdom.Class("filters"), links)
}

func countLabel(n int) string {
	if n == 1 {
		return "1 item left"
	}
	return strconv.Itoa(n) + " items left"
}

func clockLabel(shown bool) string {
	if shown {
		return "Hide clock"
	}
	return "Show clock"
}
