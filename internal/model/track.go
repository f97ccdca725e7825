package model

type ContentType string

const (
	ContentVideo    ContentType = "video"
	ContentReading  ContentType = "reading"
	ContentActivity ContentType = "activity"
)

// Track 学习路径，只读目录数据
// swagger:model Track
type Track struct {
	BaseModel
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	OrderIndex  int      `gorm:"default:0" json:"order_index"`
	Modules     []Module `gorm:"foreignKey:TrackID" json:"modules,omitempty"`
}

func (Track) TableName() string {
	return "tracks"
}

// Module 路径内的模块，order_index 在同一路径内从 1 开始连续且唯一
// swagger:model Module
type Module struct {
	BaseModel
	TrackID     uint        `gorm:"not null;uniqueIndex:idx_module_track_order" json:"track_id"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	ContentType ContentType `gorm:"size:20;not null" json:"content_type"`
	ContentURL  *string     `gorm:"size:512" json:"content_url"`
	OrderIndex  int         `gorm:"not null;uniqueIndex:idx_module_track_order" json:"order_index"`
}

func (Module) TableName() string {
	return "modules"
}

func (t ContentType) Valid() bool {
	switch t {
	case ContentVideo, ContentReading, ContentActivity:
		return true
	}
	return false
}
