package shapeinference

import (
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Context is the symbol table of one shape inference pass: value name to Shape, plus the Bindings used to
// resolve symbolic dimensions.
//
// A Context is created per graph and is not safe for concurrent use: graphs processed concurrently must each use
// their own Context.
type Context struct {
	shapes   *orderedmap.OrderedMap[string, Shape]
	bindings Bindings
}

// NewContext creates an empty Context. The bindings are copied, and are not changed afterward.
func NewContext(bindings Bindings) *Context {
	if bindings == nil {
		bindings = Bindings{}
	}
	return &Context{
		shapes:   orderedmap.New[string, Shape](),
		bindings: bindings.Clone(),
	}
}

// SetShape records (or overwrites) the shape of the value name.
func (c *Context) SetShape(name string, shape Shape) {
	c.shapes.Set(name, shape.Clone())
}

// GetShape returns the shape previously recorded for name.
func (c *Context) GetShape(name string) (Shape, bool) {
	shape, found := c.shapes.Get(name)
	if !found {
		return Shape{}, false
	}
	return shape.Clone(), true
}

// Len returns the number of values with a recorded shape.
func (c *Context) Len() int { return c.shapes.Len() }

// Names returns the names of values with a recorded shape, in the order they were first set.
func (c *Context) Names() []string {
	names := make([]string, 0, c.shapes.Len())
	for pair := c.shapes.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Bindings returns a copy of the binding table.
func (c *Context) Bindings() Bindings { return c.bindings.Clone() }

// Resolve substitutes the symbolic dimensions of shape using the context's bindings.
func (c *Context) Resolve(shape Shape) ([]int64, bool) {
	return shape.Resolve(c.bindings)
}

// input returns the recorded shape of name, or an ErrMissingInput error.
func (c *Context) input(name string) (Shape, error) {
	shape, found := c.GetShape(name)
	if !found {
		return Shape{}, errors.Wrapf(ErrMissingInput, "value %q", name)
	}
	return shape, nil
}

// resolvedInput returns the concrete extents of name's shape.
func (c *Context) resolvedInput(name string) ([]int64, error) {
	shape, err := c.input(name)
	if err != nil {
		return nil, err
	}
	extents, ok := c.Resolve(shape)
	if !ok {
		return nil, errors.Wrapf(ErrUnresolved, "value %q has shape %s, bindings={%s}", name, shape, c.bindings.Key())
	}
	return extents, nil
}
