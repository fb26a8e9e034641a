package rodhost

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/viewmark/marker"
)

const rectJS = `() => {
	const r = this.getBoundingClientRect();
	return { top: r.top, left: r.left, bottom: r.bottom, right: r.right };
}`

// element is a remote DOM element handle.
type element struct {
	el   *rod.Element
	path string
}

func (e *element) Rect(ctx context.Context) (marker.Rect, error) {
	res, err := e.el.Context(ctx).Eval(rectJS)
	if err != nil {
		return marker.Rect{}, fmt.Errorf("rodhost: bounding rect: %w", err)
	}
	v := res.Value
	return marker.Rect{
		Top:    v.Get("top").Num(),
		Left:   v.Get("left").Num(),
		Bottom: v.Get("bottom").Num(),
		Right:  v.Get("right").Num(),
	}, nil
}

func (e *element) SetClass(ctx context.Context, class string) error {
	if _, err := e.el.Context(ctx).Eval(`(c) => { this.className = c; }`, class); err != nil {
		return fmt.Errorf("rodhost: set class: %w", err)
	}
	return nil
}

func (e *element) RemoveClass(ctx context.Context) error {
	if _, err := e.el.Context(ctx).Eval(`() => { this.removeAttribute("class"); }`); err != nil {
		return fmt.Errorf("rodhost: remove class: %w", err)
	}
	return nil
}

func (e *element) Path() string {
	return e.path
}
