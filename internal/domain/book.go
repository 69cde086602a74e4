package domain

import (
	"encoding/json"
	"time"
)

// Resource holds the fields shared by every commentable entity.
type Resource struct {
	ID         int64
	Aggregate  *Aggregate
	IsDeleted  bool
	EditedTime time.Time
	CreatedAt  time.Time
}

// Rating returns the derived mean, or nil when nothing is rated.
func (r Resource) Rating() *Tenths {
	if r.Aggregate == nil {
		return nil
	}
	mean := r.Aggregate.Mean()
	return &mean
}

// RatingNumber returns the count of rated live comments, or nil.
func (r Resource) RatingNumber() *int {
	if r.Aggregate == nil {
		return nil
	}
	n := r.Aggregate.Number
	return &n
}

// Book is the catalog entity.
type Book struct {
	Resource
	Title      string
	Subtitle   string
	OrigTitle  string
	Author     []string
	Translator []string
	Language   string
	PubHouse   string
	PubYear    *int
	PubMonth   *int
	Binding    string
	Price      string
	Pages      *int
	ISBN       string
	ImgURL     string
	Other      json.RawMessage
}

// BookFields is the writable part of a book; aggregate fields are absent on
// purpose so they never come from user input.
type BookFields struct {
	Title      string
	Subtitle   string
	OrigTitle  string
	Author     []string
	Translator []string
	Language   string
	PubHouse   string
	PubYear    *int
	PubMonth   *int
	Binding    string
	Price      string
	Pages      *int
	ISBN       string
	ImgURL     string
	Other      json.RawMessage
}

// Fields extracts the writable part of b.
func (b Book) Fields() BookFields {
	return BookFields{
		Title:      b.Title,
		Subtitle:   b.Subtitle,
		OrigTitle:  b.OrigTitle,
		Author:     b.Author,
		Translator: b.Translator,
		Language:   b.Language,
		PubHouse:   b.PubHouse,
		PubYear:    b.PubYear,
		PubMonth:   b.PubMonth,
		Binding:    b.Binding,
		Price:      b.Price,
		Pages:      b.Pages,
		ISBN:       b.ISBN,
		ImgURL:     b.ImgURL,
		Other:      b.Other,
	}
}
