package models

// CourseIDLength is the fixed length of every catalog course identifier.
const CourseIDLength = 7

// Course is a catalog entry. ActualS is only ever changed through the
// enrollment increment/decrement operations of the store.
type Course struct {
	ID       string  `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Cfu      int     `db:"cfu" json:"cfu"`
	ActualS  int     `db:"actual_s" json:"actualS"`
	MaxS     *int    `db:"max_s" json:"maxS,omitempty"`
	Required *string `db:"required" json:"required,omitempty"`
}

// HasCap reports whether the course limits concurrent enrollment.
func (c Course) HasCap() bool {
	return c.MaxS != nil
}

// IsFull reports whether one more enrollment would exceed the cap.
func (c Course) IsFull() bool {
	return c.MaxS != nil && c.ActualS+1 > *c.MaxS
}

// RequiredID returns the prerequisite id or "" when there is none.
func (c Course) RequiredID() string {
	if c.Required == nil {
		return ""
	}
	return *c.Required
}

// CourseSummary is the short form used to describe incompatible courses.
type CourseSummary struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// CatalogCourse is a course enriched with the courses it cannot coexist with.
type CatalogCourse struct {
	Course
	Incompatibles []CourseSummary `json:"incompatibles"`
}

// Incompatibility is one unordered pair of mutually exclusive courses.
type Incompatibility struct {
	Course1 string `db:"course1" json:"course1"`
	Course2 string `db:"course2" json:"course2"`
}

// Other returns the partner of id in the pair.
func (i Incompatibility) Other(id string) string {
	if i.Course1 == id {
		return i.Course2
	}
	return i.Course1
}
