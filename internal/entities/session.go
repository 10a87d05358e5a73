package entities

// Session is a visitor session row in the layout scs' sqlite3store reads
// and writes. Data is the gob-encoded session map; Expiry is a Julian day.
type Session struct {
	Token  string  `gorm:"column:token;type:TEXT;primaryKey"`
	Data   []byte  `gorm:"column:data;type:BLOB;not null"`
	Expiry float64 `gorm:"column:expiry;type:REAL;not null;index:sessions_expiry_idx"`
}

func (Session) TableName() string {
	return "sessions"
}
