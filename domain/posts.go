package domain

import (
	"strconv"
	"strings"
)

type MediaType string

const (
	MediaImage    MediaType = "IMAGE"
	MediaVideo    MediaType = "VIDEO"
	MediaCarousel MediaType = "CAROUSEL_ALBUM"
)

const DefaultCaption = "No caption"

// ChildMedia is one item of a carousel album.
type ChildMedia struct {
	Id           string    `json:"id"`
	MediaType    MediaType `json:"media_type"`
	MediaURL     string    `json:"media_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
}

// RemotePost is a normalized remote media item. Children is only populated for
// carousel albums and keeps the remote order.
type RemotePost struct {
	Id            string       `json:"id"`
	MediaType     MediaType    `json:"media_type"`
	MediaURL      string       `json:"media_url"`
	ThumbnailURL  string       `json:"thumbnail_url,omitempty"`
	Permalink     string       `json:"permalink"`
	Caption       string       `json:"caption,omitempty"`
	Timestamp     string       `json:"timestamp"`
	LikeCount     int          `json:"like_count"`
	CommentsCount int          `json:"comments_count"`
	ViewCount     int          `json:"view_count,omitempty"`
	Children      []ChildMedia `json:"children,omitempty"`
}

// Profile is the remote account profile fetched alongside the media.
type Profile struct {
	Id             string `json:"id"`
	UserId         string `json:"user_id,omitempty"`
	Username       string `json:"username"`
	Name           string `json:"name,omitempty"`
	FollowersCount int    `json:"followers_count"`
	PictureURL     string `json:"profile_picture_url,omitempty"`
}

// Feed is everything one fetch returns.
type Feed struct {
	Posts   []RemotePost `json:"data"`
	Profile Profile      `json:"profile"`
}

// PostRecord is the local per-post record as stored in the content store.
type PostRecord struct {
	Id        string
	Handle    string
	MediaRefs []string
}

// ListRecord is the singleton feed index of one username.
type ListRecord struct {
	Id          string
	Handle      string
	PostIds     []string
	Username    string
	DisplayName string
}

func (p *RemotePost) CaptionOrDefault() string {
	if strings.TrimSpace(p.Caption) == "" {
		return DefaultCaption
	}
	return p.Caption
}

func (p *RemotePost) Likes() string {
	return strconv.Itoa(p.LikeCount)
}

func (p *RemotePost) Comments() string {
	return strconv.Itoa(p.CommentsCount)
}
