package domain

import "time"

// Studio is a physical location tickets are filed against.
type Studio struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category classifies tickets. A category with ParentID set is a subcategory.
type Category struct {
	ID        string
	ParentID  *string
	Name      string
	SLAHours  *int
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SLAWindow returns the category's configured SLA, if any.
func (c *Category) SLAWindow() (time.Duration, bool) {
	if c == nil || c.SLAHours == nil || *c.SLAHours <= 0 {
		return 0, false
	}
	return time.Duration(*c.SLAHours) * time.Hour, true
}
