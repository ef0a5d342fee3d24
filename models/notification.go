package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NoticeType string

const (
	NoticeAlert   NoticeType = "alert"
	NoticeMessage NoticeType = "message"
)

// Notice is addressed to every user in Team; a user has read it once their id
// is in IsRead.
type Notice struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Team      []primitive.ObjectID `bson:"team" json:"team"`
	Text      string               `bson:"text" json:"text"`
	Task      primitive.ObjectID   `bson:"task" json:"task"`
	NotiType  NoticeType           `bson:"notiType" json:"notiType"`
	IsRead    []primitive.ObjectID `bson:"isRead" json:"isRead"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}

// UnreadBy reports whether userID is addressed and has not acknowledged.
func (n Notice) UnreadBy(userID primitive.ObjectID) bool {
	return containsID(n.Team, userID) && !containsID(n.IsRead, userID)
}

type TaskRef struct {
	ID    primitive.ObjectID `json:"_id"`
	Title string             `json:"title"`
}

// NoticeView is a notice with its task title populated.
type NoticeView struct {
	ID        primitive.ObjectID   `json:"_id"`
	Team      []primitive.ObjectID `json:"team"`
	Text      string               `json:"text"`
	Task      *TaskRef             `json:"task"`
	NotiType  NoticeType           `json:"notiType"`
	IsRead    []primitive.ObjectID `json:"isRead"`
	CreatedAt time.Time            `json:"createdAt"`
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
