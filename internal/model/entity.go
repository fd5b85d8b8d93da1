package model

import (
	"time"
)

// User registered account
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"type:varchar(100);not null" json:"username"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

// Room top-level collaborative session, entered via join code
type Room struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"type:varchar(200);not null" json:"name"`
	JoinCode string `gorm:"type:varchar(10);uniqueIndex;not null" json:"joinCode"`

	// Design brief fields, edited live via updateDesignDetails
	BriefObjective   string `gorm:"type:text;default:''" json:"briefObjective"`
	BriefAudience    string `gorm:"type:text;default:''" json:"briefAudience"`
	BriefConstraints string `gorm:"type:text;default:''" json:"briefConstraints"`
	BriefOthers      string `gorm:"type:text;default:''" json:"briefOthers"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations
	Boards       []Board       `gorm:"foreignKey:RoomID" json:"boards,omitempty"`
	ChatMessages []ChatMessage `gorm:"foreignKey:RoomID" json:"chatMessages,omitempty"`
}

func (Room) TableName() string {
	return "rooms"
}

// ChatMessage ordered room chat log entry
type ChatMessage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    int64     `gorm:"not null;index" json:"roomId"`
	UserID    int64     `gorm:"not null" json:"userId"`
	Username  string    `gorm:"type:varchar(100);not null" json:"username"`
	BoardID   *int64    `json:"boardId,omitempty"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`

	// Relations
	Room Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Board a named canvas inside a room
type Board struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    int64     `gorm:"not null;index" json:"roomId"`
	Name      string    `gorm:"type:varchar(200);not null;index" json:"name"`
	IsStarred bool      `gorm:"default:false" json:"isStarred"`
	IsVoting  bool      `gorm:"default:false" json:"isVoting"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations
	Room       Room             `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Images     []Image          `gorm:"foreignKey:BoardID" json:"images,omitempty"`
	Keywords   []Keyword        `gorm:"foreignKey:BoardID" json:"keywords,omitempty"`
	Threads    []Thread         `gorm:"foreignKey:BoardID" json:"threads,omitempty"`
	Iterations []BoardIteration `gorm:"foreignKey:BoardID" json:"iterations,omitempty"`
}

func (Board) TableName() string {
	return "boards"
}

// BoardIteration one image-generation run: prompts, outputs, keyword snapshot
type BoardIteration struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BoardID         int64     `gorm:"not null;index" json:"boardId"`
	Prompts         string    `gorm:"type:jsonb;default:'[]'" json:"prompts"`          // JSON array of prompt strings
	GeneratedImages string    `gorm:"type:jsonb;default:'[]'" json:"generatedImages"` // JSON array of URLs
	Keywords        string    `gorm:"type:jsonb;default:'[]'" json:"keywords"`         // JSON array of {keyword,type,vote}
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`

	// Relations
	Board Board `gorm:"foreignKey:BoardID" json:"board,omitempty"`
}

func (BoardIteration) TableName() string {
	return "board_iterations"
}

// Image an uploaded canvas image; spatial fields are always set together
type Image struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BoardID   int64     `gorm:"not null;index" json:"boardId"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	Filename  string    `gorm:"type:varchar(255);default:''" json:"filename"`
	X         float64   `gorm:"not null" json:"x"`
	Y         float64   `gorm:"not null" json:"y"`
	Width     float64   `gorm:"not null" json:"width"`
	Height    float64   `gorm:"not null" json:"height"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations
	Board    Board           `gorm:"foreignKey:BoardID" json:"board,omitempty"`
	Keywords []Keyword       `gorm:"foreignKey:ImageID" json:"keywords,omitempty"`
	Feedback []ImageFeedback `gorm:"foreignKey:ImageID" json:"feedback,omitempty"`
}

func (Image) TableName() string {
	return "images"
}

// ImageFeedback ordered free-text feedback on an image
type ImageFeedback struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ImageID   int64     `gorm:"not null;index" json:"imageId"`
	UserID    int64     `gorm:"not null" json:"userId"`
	Username  string    `gorm:"type:varchar(100);not null" json:"username"`
	KeywordID *int64    `json:"keywordId,omitempty"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`

	// Relations
	Image Image `gorm:"foreignKey:ImageID" json:"image,omitempty"`
}

func (ImageFeedback) TableName() string {
	return "image_feedback"
}

// Keyword a typed, votable tag; ImageID nil means board-level note.
// OffsetX/OffsetY are both nil (unplaced) or both set (placed on canvas).
type Keyword struct {
	ID            int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	BoardID       int64    `gorm:"not null;index" json:"boardId"`
	ImageID       *int64   `gorm:"index" json:"imageId,omitempty"`
	Type          string   `gorm:"type:varchar(50);not null" json:"type"`
	Keyword       string   `gorm:"type:varchar(255);not null" json:"keyword"`
	IsSelected    bool     `gorm:"default:false" json:"isSelected"`
	IsCustom      bool     `gorm:"default:false" json:"isCustom"`
	OffsetX       *float64 `json:"offsetX,omitempty"`
	OffsetY       *float64 `json:"offsetY,omitempty"`
	BoundingBoxes string   `gorm:"type:jsonb;default:'[]'" json:"boundingBoxes"` // Arrangement keywords only
	Author        string   `gorm:"type:varchar(100);default:''" json:"author"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations
	Board Board         `gorm:"foreignKey:BoardID" json:"board,omitempty"`
	Votes []KeywordVote `gorm:"foreignKey:KeywordID" json:"votes,omitempty"`
}

func (Keyword) TableName() string {
	return "keywords"
}

// KeywordVote one user's vote on one keyword. The unique index makes the
// up/down mutual exclusion a schema-level invariant.
type KeywordVote struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	KeywordID  int64     `gorm:"not null;uniqueIndex:idx_keyword_user" json:"keywordId"`
	UserID     int64     `gorm:"not null;uniqueIndex:idx_keyword_user" json:"userId"`
	IsDownvote bool      `gorm:"default:false" json:"isDownvote"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`

	// Relations
	Keyword Keyword `gorm:"foreignKey:KeywordID" json:"keyword,omitempty"`
}

func (KeywordVote) TableName() string {
	return "keyword_votes"
}

// Thread a comment anchored to a board, image or keyword, or a reply.
// ParentID nil means top-level; parent/children are derived from ParentID
// queries, never stored as mutual references.
type Thread struct {
	ID         int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	BoardID    int64    `gorm:"not null;index" json:"boardId"`
	ImageID    *int64   `gorm:"index" json:"imageId,omitempty"`
	KeywordID  *int64   `gorm:"index" json:"keywordId,omitempty"`
	ParentID   *int64   `gorm:"index" json:"parentId,omitempty"`
	UserID     int64    `gorm:"not null" json:"userId"`
	Username   string   `gorm:"type:varchar(100);not null" json:"username"`
	Value      string   `gorm:"type:text;not null" json:"value"`
	PositionX  *float64 `json:"positionX,omitempty"`
	PositionY  *float64 `json:"positionY,omitempty"`
	IsResolved bool     `gorm:"default:false" json:"isResolved"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations
	Board Board `gorm:"foreignKey:BoardID" json:"board,omitempty"`
}

func (Thread) TableName() string {
	return "threads"
}
