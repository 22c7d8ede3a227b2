package model

// Ref is a PingCode resource reference: an id plus display fields. The Type
// field is populated only where the upstream payload carries one.
type Ref struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Project is a PingCode project. Timestamps are Unix seconds as delivered by
// the upstream API.
type Project struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	ScopeType   string `json:"scope_type"`
	Visibility  string `json:"visibility"`
	State       Ref    `json:"state"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
	StartAt     int64  `json:"start_at"`
	EndAt       int64  `json:"end_at"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	IsArchived  int    `json:"is_archived"`
	IsDeleted   int    `json:"is_deleted"`
}

// WorkItem is a PingCode work item (story, task, bug...).
type WorkItem struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Project     Ref    `json:"project"`
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	ParentID    string `json:"parent_id,omitempty"`
	ShortID     string `json:"short_id"`
	HTMLURL     string `json:"html_url"`
	State       Ref    `json:"state"`
	Priority    Ref    `json:"priority"`
	Description string `json:"description,omitempty"`
	StartAt     int64  `json:"start_at"`
	EndAt       int64  `json:"end_at"`
	CompletedAt int64  `json:"completed_at"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	IsArchived  int    `json:"is_archived"`
	IsDeleted   int    `json:"is_deleted"`
}

// Product is a PingCode product (the Ship module).
type Product struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Visibility  string `json:"visibility"`
	ScopeType   string `json:"scope_type"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	IsArchived  int    `json:"is_archived"`
	IsDeleted   int    `json:"is_deleted"`
}

// Idea is a PingCode product idea (requirement).
type Idea struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Product     Ref     `json:"product"`
	Identifier  string  `json:"identifier"`
	Title       string  `json:"title"`
	ShortID     string  `json:"short_id"`
	HTMLURL     string  `json:"html_url"`
	State       Ref     `json:"state"`
	Priority    Ref     `json:"priority"`
	Score       float64 `json:"score"`
	Progress    float64 `json:"progress"`
	Description string  `json:"description,omitempty"`
	CompletedAt int64   `json:"completed_at"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
	IsArchived  int     `json:"is_archived"`
	IsDeleted   int     `json:"is_deleted"`
}

// ProjectQuery narrows a project listing. Zero values are omitted from the
// upstream request.
type ProjectQuery struct {
	Identifier      string
	Type            string // scrum, kanban, waterfall, hybrid
	IncludeDeleted  bool
	IncludeArchived bool
}

// WorkItemQuery narrows a work item listing. ProjectIDs is a comma-separated
// id list, as the upstream API expects.
type WorkItemQuery struct {
	ProjectIDs      string
	IncludeDeleted  bool
	IncludeArchived bool
}

// IdeaQuery narrows an idea listing.
type IdeaQuery struct {
	ProductID      string
	StateID        string
	PriorityID     string
	CreatedBetween string
	UpdatedBetween string
	Keywords       string
}
