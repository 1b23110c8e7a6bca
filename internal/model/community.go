package model

// ForumTopic 社区论坛主题
type ForumTopic struct {
	BaseModel
	Title      string       `gorm:"size:200;not null" json:"title"`
	Content    string       `gorm:"type:text;not null" json:"content"`
	Category   string       `gorm:"size:50;not null;index" json:"category"`
	AuthorID   uint         `gorm:"index;not null" json:"authorId"`
	ReplyCount int          `gorm:"not null;default:0" json:"replyCount"`
	Author     *User        `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Replies    []TopicReply `gorm:"foreignKey:TopicID" json:"replies,omitempty"`
}

func (ForumTopic) TableName() string {
	return "forum_topics"
}

type TopicReply struct {
	BaseModel
	Content  string `gorm:"type:text;not null" json:"content"`
	TopicID  uint   `gorm:"index;not null" json:"topicId"`
	AuthorID uint   `gorm:"index;not null" json:"authorId"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

func (TopicReply) TableName() string {
	return "topic_replies"
}
