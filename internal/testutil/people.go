package testutil

import "fmt"

// Person is the entity used by index tests. Equality of *Person values is
// usually by ID (see SameID), while the index key is derived from Surname,
// which tests mutate to simulate key drift.
type Person struct {
	ID      int
	First   string
	Surname string
}

// String implements fmt.Stringer.
func (p *Person) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s#%d", p.First, p.Surname, p.ID)
}

// Surname is a key function for *Person.
func Surname(p *Person) string {
	return p.Surname
}

// SameID reports whether a and b identify the same person.
func SameID(a, b *Person) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

// People returns a fresh set of six people across three surnames, in a
// fixed order: Smith, Jones, Smith, Brown, Jones, Smith.
func People() []*Person {
	return []*Person{
		{ID: 1, First: "Ann", Surname: "Smith"},
		{ID: 2, First: "Bob", Surname: "Jones"},
		{ID: 3, First: "Cid", Surname: "Smith"},
		{ID: 4, First: "Dee", Surname: "Brown"},
		{ID: 5, First: "Eve", Surname: "Jones"},
		{ID: 6, First: "Fay", Surname: "Smith"},
	}
}
