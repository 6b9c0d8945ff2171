// Package mail implements C9: direct and broadcast mail, lazy recipient
// materialization on read, a read-once reward, expiry cleanup, and the
// scheduled dispatcher, grounded on
// original_source/plugins/mailbox/{service,scheduled_service}.py.
package mail

import "time"

// Template is spec.md §3's Mail Template.
type Template struct {
	ID          int64
	Title       string
	Content     string
	StarShards  int64
	ExpireDays  int
	SenderID    string
	IsBroadcast bool
	CreatedAt   time.Time
}

func (t Template) expiresAt() time.Time {
	return t.CreatedAt.Add(time.Duration(t.ExpireDays) * 24 * time.Hour)
}

func (t Template) isExpired(now time.Time) bool {
	return !now.Before(t.expiresAt())
}

// Recipient is spec.md §3's Mail Recipient.
type Recipient struct {
	ID        int64
	MailID    int64
	UserID    string
	IsRead    bool
	ReadAt    *time.Time
}

// Entry is one user-facing row: a template joined with that user's
// recipient state, returned by List/Read.
type Entry struct {
	Template
	IsRead bool
	ReadAt *time.Time
}

// Scheduled is spec.md §3's Scheduled Mail.
type Scheduled struct {
	ID             int64
	Name           string
	Recipients     string
	Title          string
	Content        string
	StarShards     int64
	ExpireDays     int
	ScheduledTime  time.Time
	CreatedAt      time.Time
	CreatedBy      string
	IsSent         bool
	SentAt         *time.Time
}

const recipientsAll = "all"
