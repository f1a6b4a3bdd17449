package model

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeYears(t *testing.T) {
	assert.Equal(t, "2.0", AgeYears(730))
	assert.Equal(t, "0.0", AgeYears(0))
	assert.Equal(t, "1.5", AgeYears(547.5))
	assert.Equal(t, "0.1", AgeYears(40))
}

func TestDecodeJSON_Fields(t *testing.T) {
	in, err := DecodeJSON(strings.NewReader(`{"name":"Lamp","condition":"Like New","age_days":730,"zipcode":"10001",
		"comments":[{"author":"ann","comment":"nice"}]}`))
	require.NoError(t, err)
	require.NotNil(t, in.Name)
	assert.Equal(t, "Lamp", *in.Name)
	assert.Equal(t, "Like New", *in.Condition)
	assert.Equal(t, 730.0, *in.AgeDays)
	require.NotNil(t, in.Comments)
	assert.Len(t, *in.Comments, 1)
	assert.Nil(t, in.Category)
}

func TestDecodeJSON_EmptyBody(t *testing.T) {
	in, err := DecodeJSON(strings.NewReader("  "))
	require.NoError(t, err)
	assert.Equal(t, ItemInput{}, in)
}

func TestDecodeJSON_ReadOnlyKeysIgnored(t *testing.T) {
	in, err := DecodeJSON(strings.NewReader(`{"_id":"abc","id":99,"age_years":"9.9","image":"x.png","name":"Chair"}`))
	require.NoError(t, err)
	assert.Equal(t, "Chair", *in.Name)
}

func TestDecodeJSON_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":   `{"price":10}`,
		"bad condition":   `{"condition":"Broken"}`,
		"negative age":    `{"age_days":-1}`,
		"wrong type":      `{"age_days":"many"}`,
		"zipcode letters": `{"zipcode":"ABC12"}`,
		"empty comment":   `{"comments":[{"author":"a","comment":""}]}`,
		"two objects":     `{"name":"a"}{"name":"b"}`,
		"malformed":       `{"name":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeJSON(strings.NewReader(body))
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestDecodeForm(t *testing.T) {
	v := url.Values{}
	v.Set("name", "Desk")
	v.Set("age_days", "365")
	v.Set("date_added", "1700000000")
	v.Set("id", "5")
	v.Set("comments", `[{"author":"bob","comment":"ok"}]`)

	in, err := DecodeForm(v)
	require.NoError(t, err)
	assert.Equal(t, "Desk", *in.Name)
	assert.Equal(t, 365.0, *in.AgeDays)
	assert.Equal(t, int64(1700000000), *in.DateAdded)
	assert.Len(t, *in.Comments, 1)
}

func TestDecodeForm_Rejects(t *testing.T) {
	for _, v := range []url.Values{
		{"color": {"red"}},
		{"age_days": {"NaN"}},
		{"age_days": {"abc"}},
		{"date_added": {"yesterday"}},
		{"condition": {"Mint"}},
		{"comments": {"not json"}},
	} {
		_, err := DecodeForm(v)
		assert.ErrorIs(t, err, ErrValidation, "%v", v)
	}
}

func TestApplyAndTouch(t *testing.T) {
	age := 100.0
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	it := Item{ID: 3, Name: "Old", Category: "Home", AgeDays: &age, CreatedAt: created}

	newName := "New"
	newAge := 730.0
	ItemInput{Name: &newName, AgeDays: &newAge}.Apply(&it)

	now := time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC)
	it.Touch(now)

	assert.Equal(t, int64(3), it.ID)
	assert.Equal(t, "New", it.Name)
	assert.Equal(t, "Home", it.Category)
	assert.Equal(t, "2.0", it.AgeYears)
	assert.Equal(t, created, it.CreatedAt)
	require.NotNil(t, it.UpdatedAt)
	assert.Equal(t, now, *it.UpdatedAt)
}

func TestTouch_NoAgeKeepsAgeYears(t *testing.T) {
	it := Item{ID: 1, AgeYears: "1.0"}
	it.Touch(time.Now())
	assert.Equal(t, "1.0", it.AgeYears)
	assert.NotNil(t, it.UpdatedAt)
}
