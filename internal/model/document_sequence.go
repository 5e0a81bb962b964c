package model

// Document number prefixes
const (
	PrefixSale    = "INV"
	PrefixPayment = "PAY"
)

// DocumentSequence holds the last ordinal handed out for a prefix on a UTC day.
type DocumentSequence struct {
	Prefix    string `gorm:"type:varchar(10);primaryKey"`
	Day       string `gorm:"type:varchar(8);primaryKey"` // YYYYMMDD
	LastValue int64  `gorm:"not null"`
}
