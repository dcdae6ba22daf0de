package component

// Classification partitions the members of a class by accessor shape.
type Classification struct {
	Methods    []string
	Properties []string
	Computed   []string
}

// Classify sorts every member of c except constructor, init and dispose:
// a setter makes it a property, a getter makes it computed, and a member
// with neither is a method. A member with both accessors is listed as a
// property and as computed. Names keep declaration order.
func Classify(c *Class) Classification {
	var out Classification
	if c == nil {
		return out
	}
	for _, m := range c.members {
		if isReserved(m.Name) {
			continue
		}
		if m.HasSetter() {
			out.Properties = append(out.Properties, m.Name)
		}
		if m.HasGetter() {
			out.Computed = append(out.Computed, m.Name)
		}
		if m.IsMethod() {
			out.Methods = append(out.Methods, m.Name)
		}
	}
	return out
}

// Equal reports whether two classifications list the same names in the same
// order.
func (c Classification) Equal(other Classification) bool {
	return equalNames(c.Methods, other.Methods) &&
		equalNames(c.Properties, other.Properties) &&
		equalNames(c.Computed, other.Computed)
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
