package model

// swagger:model Course
type Course struct {
	BaseModel
	Title          string         `gorm:"size:200;not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Category       string         `gorm:"size:100;not null;index" json:"category"`
	Level          string         `gorm:"size:50;not null;index" json:"level"`
	Duration       int            `gorm:"default:0" json:"duration"` // 分钟
	ImageURL       string         `gorm:"size:500" json:"imageUrl"`
	InstructorID   uint           `gorm:"index" json:"instructorId"`
	IsPremium      bool           `gorm:"default:false" json:"isPremium"`
	HasCertificate bool           `gorm:"default:false" json:"hasCertificate"`
	EnrolledCount  int            `gorm:"default:0" json:"enrolledCount"`
	AverageRating  float64        `gorm:"default:0" json:"averageRating"`
	Modules        []CourseModule `gorm:"foreignKey:CourseID" json:"modules,omitempty"`

	// 当前用户的学习进度，仅在已报名时填充
	UserProgress *float64 `gorm:"-" json:"userProgress,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

type CourseModule struct {
	BaseModel
	Title       string   `gorm:"size:200;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Order       int      `gorm:"column:sort_order;not null" json:"order"`
	CourseID    uint     `gorm:"index;not null" json:"courseId"`
	Lessons     []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}

type Lesson struct {
	BaseModel
	Title    string `gorm:"size:200;not null" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	Type     string `gorm:"size:50" json:"type"` // video, article, quiz
	Duration int    `gorm:"default:0" json:"duration"`
	Order    int    `gorm:"column:sort_order;not null" json:"order"`
	ModuleID uint   `gorm:"index;not null" json:"moduleId"`
}

func (Lesson) TableName() string {
	return "lessons"
}
