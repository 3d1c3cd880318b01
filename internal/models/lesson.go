package models

// Lesson is a catalog entry. Read-only from the purchase service's
// perspective; price is in the smallest currency unit.
type Lesson struct {
	ID       int64  `json:"id"`
	CourseID int64  `json:"course_id"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
}
