package vdom

import "errors"

// Decoded is the successful result of decoding a native event.
type Decoded struct {
	Message         any
	StopPropagation bool
	PreventDefault  bool
}

// Decoder turns a native event into a message. Decoding is supplied by
// the rendering target binding; the core treats it as opaque.
type Decoder func(native any) (Decoded, error)

// Handler is the stable identity of an event listener. Two listener props
// are equal only when they point at the same Handler.
type Handler struct {
	Decode Decoder
}

// On creates an event listener property.
func On(event string, decode Decoder) Prop {
	return Prop{Kind: PropListener, Name: event, Handler: &Handler{Decode: decode}}
}

// OnHandler creates a listener from a shared Handler. Reusing one Handler
// across renders lets the diff skip the listener entirely.
func OnHandler(event string, h *Handler) Prop {
	return Prop{Kind: PropListener, Name: event, Handler: h}
}

// Always returns a decoder that produces msg for every event.
func Always(msg any) Decoder {
	return func(any) (Decoded, error) {
		return Decoded{Message: msg}, nil
	}
}

// TargetValuer is implemented by native events that carry the value of
// their target element.
type TargetValuer interface {
	TargetValue() (string, bool)
}

// ErrNoTargetValue is returned by value decoders when the native event
// has no target value.
var ErrNoTargetValue = errors.New("vdom: event has no target value")

// TargetValue returns a decoder that reads the target value of the native
// event and converts it with fn.
func TargetValue(fn func(string) any) Decoder {
	return func(native any) (Decoded, error) {
		tv, ok := native.(TargetValuer)
		if !ok {
			return Decoded{}, ErrNoTargetValue
		}
		v, ok := tv.TargetValue()
		if !ok {
			return Decoded{}, ErrNoTargetValue
		}
		return Decoded{Message: fn(v)}, nil
	}
}

// Mouse events

// OnClick produces msg on click.
func OnClick(msg any) Prop { return On("click", Always(msg)) }

// OnDblClick produces msg on double-click.
func OnDblClick(msg any) Prop { return On("dblclick", Always(msg)) }

// OnMouseEnter produces msg on mouseenter.
func OnMouseEnter(msg any) Prop { return On("mouseenter", Always(msg)) }

// OnMouseLeave produces msg on mouseleave.
func OnMouseLeave(msg any) Prop { return On("mouseleave", Always(msg)) }

// Form events

// OnInput produces fn(value) for every input event.
func OnInput(fn func(string) any) Prop { return On("input", TargetValue(fn)) }

// OnChange produces fn(value) when the value is committed.
func OnChange(fn func(string) any) Prop { return On("change", TargetValue(fn)) }

// OnSubmit produces msg on submit and prevents the default navigation.
func OnSubmit(msg any) Prop {
	return On("submit", func(any) (Decoded, error) {
		return Decoded{Message: msg, PreventDefault: true}, nil
	})
}

// OnFocus produces msg on focus.
func OnFocus(msg any) Prop { return On("focus", Always(msg)) }

// OnBlur produces msg on blur.
func OnBlur(msg any) Prop { return On("blur", Always(msg)) }

// Keyboard events

// OnKeyDown decodes keydown events with decode.
func OnKeyDown(decode Decoder) Prop { return On("keydown", decode) }
