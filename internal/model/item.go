package model

import (
	"math"
	"strconv"
	"time"
)

// CollectionName — имя коллекции (таблицы, бакета, префикса ключей) с объявлениями.
const CollectionName = "secondChanceItems"

// Comment is a single remark left on a listing.
type Comment struct {
	Author  string `json:"author" validate:"max=100"`
	Comment string `json:"comment" validate:"required,max=1000"`
}

// Item — объявление каталога "second chance".
//
// ID is assigned by the store at insert time and is the identity used by
// get, update and delete. InternalID carries the store's own identifier when
// it has one (Mongo ObjectID), otherwise it stays empty.
type Item struct {
	InternalID  string     `json:"_id,omitempty"`
	ID          int64      `json:"id"`
	Name        string     `json:"name,omitempty"`
	Category    string     `json:"category,omitempty"`
	Condition   string     `json:"condition,omitempty"`
	PostedBy    string     `json:"posted_by,omitempty"`
	Zipcode     string     `json:"zipcode,omitempty"`
	DateAdded   int64      `json:"date_added,omitempty"`
	AgeDays     *float64   `json:"age_days,omitempty"`
	AgeYears    string     `json:"age_years,omitempty"`
	Description string     `json:"description,omitempty"`
	Image       string     `json:"image,omitempty"`
	ImageName   string     `json:"image_name,omitempty"`
	Comments    []Comment  `json:"comments,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// AgeYears converts an age in days to years rounded to one decimal, formatted
// the way the catalog has always exposed it ("2.0" for 730 days).
func AgeYears(days float64) string {
	years := math.Round(days/365*10) / 10
	return strconv.FormatFloat(years, 'f', 1, 64)
}

// Touch stamps the update time and recomputes the derived age.
// age_years is left untouched when the item has no age_days.
func (it *Item) Touch(now time.Time) {
	if it.AgeDays != nil {
		it.AgeYears = AgeYears(*it.AgeDays)
	}
	t := now.UTC()
	it.UpdatedAt = &t
}
