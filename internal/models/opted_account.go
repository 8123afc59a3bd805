package models

import "time"

// OptedAccount is an (account, org) pair subscribed to weekly report emails.
// At most one record exists per pair (the store upserts on opt-in); the
// record is deleted on opt-out and read back at process start to rebuild the
// scheduler's job set.
type OptedAccount struct {
	AccountID       int        `bson:"accountId" json:"accountId"`
	OrgID           int        `bson:"orgId" json:"orgId"`
	OrgName         string     `bson:"orgName" json:"orgName"`
	Email           string     `bson:"email" json:"email"`
	Users           []UserRef  `bson:"users" json:"users"`
	OptedInAt       time.Time  `bson:"optedInAt" json:"optedInAt"`
	NextTriggerTime *time.Time `bson:"nextTriggerTime,omitempty" json:"nextTriggerTime,omitempty"`
}
