// Package mapper converts stored records into their wire representation.
// Stored image filenames never leave the server; they are replaced by the
// download path of the resource that owns them.
package mapper

import (
	"fmt"

	"github.com/isdelr/adboard-be/internal/models"
)

// Ad is the summary shape of an ad.
type Ad struct {
	Author int64  `json:"author"`
	Image  string `json:"image"`
	PK     int64  `json:"pk"`
	Price  int64  `json:"price"`
	Title  string `json:"title"`
}

// Ads is a counted list of ad summaries.
type Ads struct {
	Count   int  `json:"count"`
	Results []Ad `json:"results"`
}

// ExtendedAd is an ad together with its author's contact details.
type ExtendedAd struct {
	PK              int64  `json:"pk"`
	AuthorFirstName string `json:"authorFirstName"`
	AuthorLastName  string `json:"authorLastName"`
	Description     string `json:"description"`
	Email           string `json:"email"`
	Image           string `json:"image"`
	Phone           string `json:"phone"`
	Price           int64  `json:"price"`
	Title           string `json:"title"`
}

// Comment is the wire shape of a comment.
type Comment struct {
	Author          int64  `json:"author"`
	AuthorImage     string `json:"authorImage"`
	AuthorFirstName string `json:"authorFirstName"`
	CreatedAt       int64  `json:"createdAt"` // Unix milliseconds
	PK              int64  `json:"pk"`
	Text            string `json:"text"`
}

// Comments is a counted list of comments.
type Comments struct {
	Count   int       `json:"count"`
	Results []Comment `json:"results"`
}

// User is the public profile of a user.
type User struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Phone     string      `json:"phone"`
	Role      models.Role `json:"role"`
	Image     string      `json:"image"`
}

// UpdateUser echoes the editable profile fields after an update.
type UpdateUser struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// AdImagePath returns the download path of an ad image, or "" if the ad has none.
func AdImagePath(id int64, ref string) string {
	if ref == "" {
		return ""
	}
	return fmt.Sprintf("/ads/%d/image", id)
}

// UserImagePath returns the download path of a user avatar, or "" if unset.
func UserImagePath(id int64, ref string) string {
	if ref == "" {
		return ""
	}
	return fmt.Sprintf("/users/%d/image", id)
}

func ToAd(ad models.Ad) Ad {
	return Ad{
		Author: ad.AuthorID,
		Image:  AdImagePath(ad.ID, ad.Image),
		PK:     ad.ID,
		Price:  ad.Price,
		Title:  ad.Title,
	}
}

func ToAds(ads []models.Ad) Ads {
	results := make([]Ad, 0, len(ads))
	for _, ad := range ads {
		results = append(results, ToAd(ad))
	}
	return Ads{Count: len(results), Results: results}
}

func ToExtendedAd(ad models.Ad, author models.User) ExtendedAd {
	return ExtendedAd{
		PK:              ad.ID,
		AuthorFirstName: author.FirstName,
		AuthorLastName:  author.LastName,
		Description:     ad.Description,
		Email:           author.Email,
		Image:           AdImagePath(ad.ID, ad.Image),
		Phone:           author.Phone,
		Price:           ad.Price,
		Title:           ad.Title,
	}
}

func ToComment(c models.Comment, author models.User) Comment {
	return Comment{
		Author:          c.AuthorID,
		AuthorImage:     UserImagePath(author.ID, author.Image),
		AuthorFirstName: author.FirstName,
		CreatedAt:       c.CreatedAt.UnixMilli(),
		PK:              c.ID,
		Text:            c.Text,
	}
}

func ToUser(u models.User) User {
	return User{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      u.Role,
		Image:     UserImagePath(u.ID, u.Image),
	}
}

func ToUpdateUser(u models.User) UpdateUser {
	return UpdateUser{FirstName: u.FirstName, LastName: u.LastName, Phone: u.Phone}
}
