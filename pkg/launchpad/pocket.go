package launchpad

//go:generate go run github.com/dmarkham/enumer -type Pocket -trimprefix Pocket -yaml -text -output pocket.gen.go

// Pocket is a subdivision of a series in the Ubuntu archive.
type Pocket int

const (
	PocketRelease Pocket = iota
	PocketSecurity
	PocketUpdates
	PocketProposed
	PocketBackports
)

//go:generate go run github.com/dmarkham/enumer -type QueueStatus -trimprefix QueueStatus -yaml -text -output queue_status.gen.go

// QueueStatus is the state of an upload in a series' upload queue.
type QueueStatus int

const (
	QueueStatusNew QueueStatus = iota
	QueueStatusUnapproved
	QueueStatusAccepted
	QueueStatusDone
	QueueStatusRejected
)

// ParsePockets parses pocket names, ignoring case.
func ParsePockets(names []string) ([]Pocket, error) {
	pockets := make([]Pocket, 0, len(names))
	for _, name := range names {
		p, err := PocketString(name)
		if err != nil {
			return nil, err
		}
		pockets = append(pockets, p)
	}
	return pockets, nil
}

// ParseQueueStatuses parses queue status names, ignoring case.
func ParseQueueStatuses(names []string) ([]QueueStatus, error) {
	statuses := make([]QueueStatus, 0, len(names))
	for _, name := range names {
		s, err := QueueStatusString(name)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}
