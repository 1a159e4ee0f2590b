/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model
  from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
*/
package api

import "github.com/tzk/rankup/rank"

// =============================================================================
// SEMESTERS
// =============================================================================

type SemesterDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
}

type SemesterRequest struct {
	Name     string `json:"name"`
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
}

func toSemesterDTO(s rank.Semester) SemesterDTO {
	return SemesterDTO{
		ID:       string(s.ID),
		Name:     s.Name,
		DateFrom: s.DateFrom.String(),
		DateTo:   s.DateTo.String(),
	}
}

// =============================================================================
// MEMBERS AND MEMBERSHIP
// =============================================================================

type MemberDTO struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email,omitempty"`
}

func toMemberDTO(m rank.Member) MemberDTO {
	return MemberDTO{
		ID:         string(m.ID),
		Identifier: m.Identifier,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		Email:      m.Email,
	}
}

type JoinSectionRequest struct {
	Identifier string `json:"identifier"`
	Rank       string `json:"rank,omitempty"`
}

type SectionMemberDTO struct {
	MemberID  string `json:"memberId"`
	SectionID string `json:"sectionId"`
	Rank      string `json:"rank"`
	PointsAll int    `json:"pointsAll"`
}

func toSectionMemberDTO(sm rank.SectionMember) SectionMemberDTO {
	return SectionMemberDTO{
		MemberID:  string(sm.MemberID),
		SectionID: string(sm.SectionID),
		Rank:      sm.Rank,
		PointsAll: sm.PointsAll,
	}
}

type ImportMembersResponse struct {
	Created []MemberDTO `json:"created"`
	Skipped int         `json:"skipped"`
}

// =============================================================================
// PARTICIPATIONS
// =============================================================================

type ParticipationDTO struct {
	ID       string `json:"id"`
	MemberID string `json:"memberId"`
	EventID  string `json:"eventId"`
}

func toParticipationDTO(p rank.Participation) ParticipationDTO {
	return ParticipationDTO{
		ID:       string(p.ID),
		MemberID: string(p.MemberID),
		EventID:  string(p.EventID),
	}
}

type SingleParticipationRequest struct {
	MemberID string `json:"memberId"`
	EventID  string `json:"eventId"`
}

type BulkParticipationResponse struct {
	Created []ParticipationDTO `json:"created"`
	Report  rank.BulkReport    `json:"report"`
}

type DeleteAllResponse struct {
	Deleted []ParticipationDTO `json:"deleted"`
	Skipped int                `json:"skipped"`
}

// =============================================================================
// CATALOG SEEDING
// =============================================================================

type CreateSectionRequest struct {
	Name string `json:"name"`
}

type CreateEventRequest struct {
	Name          string `json:"name"`
	Date          string `json:"date"`
	EventTypeName string `json:"eventTypeName"`
	DefaultPoints int    `json:"defaultPoints"`
}
