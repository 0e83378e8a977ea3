package model

type SessionCondition struct {
	Id             *string
	FileId         *string
	QualityVersion *int64
	Status         *string
}
