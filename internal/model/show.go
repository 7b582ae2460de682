package model

import "time"

// Show is a single event with a fixed seat pool.  Seats are created in
// bulk when the show is provisioned and never added or removed later.
type Show struct {
	ShowID    string
	Name      string
	CreatedAt time.Time
}
