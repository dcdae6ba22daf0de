package hosttest

import "sync"

// Container is an in-memory mount target.
type Container struct {
	mu    sync.Mutex
	html  string
	attrs map[string]string
}

// NewContainer returns a container holding html with the given attributes.
func NewContainer(html string, attrs map[string]string) *Container {
	c := &Container{html: html, attrs: make(map[string]string, len(attrs))}
	for k, v := range attrs {
		c.attrs[k] = v
	}
	return c
}

func (c *Container) InnerHTML() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.html
}

func (c *Container) SetInnerHTML(html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.html = html
}

func (c *Container) Attribute(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.attrs[name]
	return v, ok
}
