package models

import (
	"time"

	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// SwapRequest offers a shift held by the requester to another user.
type SwapRequest struct {
	ID          string           `firestore:"-" json:"id"`
	RequesterID string           `firestore:"requesterId" json:"requesterId" validate:"required"`
	ShiftID     string           `firestore:"shiftId" json:"shiftId" validate:"required"`
	ShiftDate   string           `firestore:"shiftDate" json:"shiftDate" validate:"required,ymd"`
	ShiftType   enums.ShiftType  `firestore:"shiftType" json:"shiftType" validate:"required,shift_type"`
	RecipientID string           `firestore:"recipientId,omitempty" json:"recipientId,omitempty"`
	Status      enums.SwapStatus `firestore:"status" json:"status" validate:"required,oneof=PENDING ACCEPTED REJECTED"`
	Reason      string           `firestore:"reason,omitempty" json:"reason,omitempty"`
	ResolvedBy  string           `firestore:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time       `firestore:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	CreatedAt   time.Time        `firestore:"createdAt" json:"createdAt"`
}

func (s *SwapRequest) SetID(id string) { s.ID = id }

// LeaveRequest asks for a day off; an admin reviews it once.
type LeaveRequest struct {
	ID         string            `firestore:"-" json:"id"`
	UserID     string            `firestore:"userId" json:"userId" validate:"required"`
	Date       string            `firestore:"date" json:"date" validate:"required,ymd"`
	Reason     string            `firestore:"reason,omitempty" json:"reason,omitempty"`
	Status     enums.LeaveStatus `firestore:"status" json:"status" validate:"required,oneof=PENDING APPROVED REJECTED"`
	ReviewedBy string            `firestore:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ReviewNote string            `firestore:"reviewNote,omitempty" json:"reviewNote,omitempty"`
	ReviewedAt *time.Time        `firestore:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	CreatedAt  time.Time         `firestore:"createdAt" json:"createdAt"`
}

func (l *LeaveRequest) SetID(id string) { l.ID = id }
