/*
handlers.go - HTTP handlers for the rankup service

PURPOSE:
  Exposes the points engine via REST. Handles HTTP request/response and
  JSON serialization, delegates everything else to the domain services.

ERROR HANDLING:
  Domain errors map to HTTP status:
  - 400: ValidationError (overlapping semesters, bad dates, bad input)
  - 404: NotFoundError
  - 409: ConflictError (duplicate participation, duplicate membership)
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tzk/rankup/rank"
	"github.com/tzk/rankup/roster"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      rank.Store
	Semesters  *rank.SemesterService
	Ledger     *rank.Ledger
	Membership *rank.MembershipService
	Reconciler *rank.Reconciler
	Log        *slog.Logger
}

func NewHandler(store rank.Store, log *slog.Logger) *Handler {
	semesters := rank.NewSemesterService(store)
	ledger := rank.NewLedger(store, semesters, roster.NewResolver(store))
	return &Handler{
		Store:      store,
		Semesters:  semesters,
		Ledger:     ledger,
		Membership: rank.NewMembershipService(store),
		Reconciler: rank.NewReconciler(store, ledger),
		Log:        log,
	}
}

// =============================================================================
// SEMESTER HANDLERS
// =============================================================================

func (h *Handler) ListSemesters(w http.ResponseWriter, r *http.Request) {
	semesters, err := h.Semesters.ListAll(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]SemesterDTO, len(semesters))
	for i, s := range semesters {
		dtos[i] = toSemesterDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetSemester(w http.ResponseWriter, r *http.Request) {
	sem, err := h.Semesters.ByID(r.Context(), rank.SemesterID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSemesterDTO(*sem))
}

func (h *Handler) CreateSemester(w http.ResponseWriter, r *http.Request) {
	req, from, to, ok := h.decodeSemester(w, r)
	if !ok {
		return
	}
	sem, err := h.Semesters.Create(r.Context(), req.Name, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSemesterDTO(*sem))
}

func (h *Handler) UpdateSemester(w http.ResponseWriter, r *http.Request) {
	req, from, to, ok := h.decodeSemester(w, r)
	if !ok {
		return
	}
	id := rank.SemesterID(chi.URLParam(r, "id"))
	sem, err := h.Semesters.Update(r.Context(), id, req.Name, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSemesterDTO(*sem))
}

func (h *Handler) DeleteSemester(w http.ResponseWriter, r *http.Request) {
	sem, err := h.Semesters.Delete(r.Context(), rank.SemesterID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSemesterDTO(*sem))
}

func (h *Handler) decodeSemester(w http.ResponseWriter, r *http.Request) (SemesterRequest, rank.Date, rank.Date, bool) {
	var req SemesterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return req, rank.Date{}, rank.Date{}, false
	}
	from, err := rank.ParseDate(req.DateFrom)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "dateFrom must be YYYY-MM-DD")
		return req, rank.Date{}, rank.Date{}, false
	}
	to, err := rank.ParseDate(req.DateTo)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "dateTo must be YYYY-MM-DD")
		return req, rank.Date{}, rank.Date{}, false
	}
	return req, from, to, true
}

// =============================================================================
// PARTICIPATION HANDLERS
// =============================================================================

func (h *Handler) CreateParticipation(w http.ResponseWriter, r *http.Request) {
	sectionID := rank.SectionID(chi.URLParam(r, "sectionID"))

	var req SingleParticipationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := h.Ledger.CreateSingle(r.Context(), sectionID,
		rank.MemberID(req.MemberID), rank.EventID(req.EventID))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toParticipationDTO(*p))
}

// CreateParticipationsFromFile handles the bulk upload: a multipart file
// of identifiers whose declared content type selects the parse shape.
func (h *Handler) CreateParticipationsFromFile(w http.ResponseWriter, r *http.Request) {
	sectionID := rank.SectionID(chi.URLParam(r, "sectionID"))
	eventID := rank.EventID(chi.URLParam(r, "eventID"))

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "missing upload file")
		return
	}
	defer file.Close()

	kind, err := roster.KindFromContentType(header.Header.Get("Content-Type"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	ids, err := roster.ParseIdentifiers(file, kind)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	created, report, err := h.Ledger.CreateBulk(r.Context(), sectionID, eventID, ids)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Log.Info("bulk participation import",
		"section", sectionID, "event", eventID,
		"created", len(created), "skipped", report.Skipped())

	dtos := make([]ParticipationDTO, len(created))
	for i, p := range created {
		dtos[i] = toParticipationDTO(p)
	}
	writeJSON(w, http.StatusOK, BulkParticipationResponse{Created: dtos, Report: report})
}

func (h *Handler) DeleteParticipation(w http.ResponseWriter, r *http.Request) {
	sectionID := rank.SectionID(chi.URLParam(r, "sectionID"))
	id := rank.ParticipationID(chi.URLParam(r, "id"))

	p, err := h.Ledger.DeleteSingle(r.Context(), sectionID, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipationDTO(*p))
}

func (h *Handler) DeleteParticipationByEventAndMember(w http.ResponseWriter, r *http.Request) {
	sectionID := rank.SectionID(chi.URLParam(r, "sectionID"))
	eventID := rank.EventID(chi.URLParam(r, "eventID"))
	memberID := rank.MemberID(chi.URLParam(r, "memberID"))

	p, err := h.Ledger.DeleteByEventAndMember(r.Context(), sectionID, eventID, memberID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipationDTO(*p))
}

func (h *Handler) DeleteAllForEvent(w http.ResponseWriter, r *http.Request) {
	sectionID := rank.SectionID(chi.URLParam(r, "sectionID"))
	eventID := rank.EventID(chi.URLParam(r, "eventID"))

	deleted, skipped, err := h.Ledger.DeleteAllForEvent(r.Context(), sectionID, eventID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]ParticipationDTO, len(deleted))
	for i, p := range deleted {
		dtos[i] = toParticipationDTO(p)
	}
	writeJSON(w, http.StatusOK, DeleteAllResponse{Deleted: dtos, Skipped: skipped})
}

func (h *Handler) ListParticipantsForEvent(w http.ResponseWriter, r *http.Request) {
	eventID := rank.EventID(chi.URLParam(r, "eventID"))

	ps, err := h.Store.ParticipationsByEvent(r.Context(), eventID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var members []MemberDTO
	for _, p := range ps {
		m, err := h.Store.MemberByID(r.Context(), p.MemberID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if m != nil {
			members = append(members, toMemberDTO(*m))
		}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) PassedThreshold(w http.ResponseWriter, r *http.Request) {
	sectionID := rank.SectionID(chi.URLParam(r, "sectionID"))
	semesterID := rank.SemesterID(chi.URLParam(r, "semesterID"))
	threshold, err := strconv.Atoi(chi.URLParam(r, "threshold"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "threshold must be an integer")
		return
	}

	members, err := h.Ledger.PassedThreshold(r.Context(), sectionID, semesterID, threshold)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// MEMBERSHIP AND RECONCILIATION HANDLERS
// =============================================================================

func (h *Handler) JoinSection(w http.ResponseWriter, r *http.Request) {
	sectionID := rank.SectionID(chi.URLParam(r, "sectionID"))

	var req JoinSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sm, err := h.Membership.Join(r.Context(), sectionID, roster.Normalize(req.Identifier), req.Rank)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSectionMemberDTO(*sm))
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	sectionID := rank.SectionID(chi.URLParam(r, "sectionID"))
	semesterID := rank.SemesterID(chi.URLParam(r, "semesterID"))

	if err := h.Reconciler.Reconcile(r.Context(), sectionID, semesterID); err != nil {
		h.writeError(w, err)
		return
	}
	h.Log.Info("reconciliation pass completed", "section", sectionID, "semester", semesterID)
	w.WriteHeader(http.StatusNoContent)
}

// ImportMembers creates members from an uploaded roster file
// (first,last,identifier,email rows). Identifier conflicts are skipped.
func (h *Handler) ImportMembers(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "missing upload file")
		return
	}
	defer file.Close()

	drafts, skipped, err := roster.ParseMembers(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var created []MemberDTO
	for _, m := range drafts {
		m.ID = rank.MemberID(uuid.NewString())
		if err := h.Store.InsertMember(r.Context(), m); err != nil {
			skipped++
			continue
		}
		created = append(created, toMemberDTO(m))
	}
	writeJSON(w, http.StatusOK, ImportMembersResponse{Created: created, Skipped: skipped})
}

// =============================================================================
// CATALOG SEEDING HANDLERS
// =============================================================================

func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req CreateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	sec := rank.Section{ID: rank.SectionID(uuid.NewString()), Name: req.Name}
	if err := h.Store.InsertSection(r.Context(), sec); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sec)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	sectionID := rank.SectionID(chi.URLParam(r, "sectionID"))

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, err := rank.ParseDate(req.Date)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if req.DefaultPoints < 0 {
		writeMessage(w, http.StatusBadRequest, "defaultPoints must be >= 0")
		return
	}
	event := rank.Event{
		ID:        rank.EventID(uuid.NewString()),
		SectionID: sectionID,
		Name:      req.Name,
		Date:      date,
		EventType: rank.EventType{
			ID:            rank.EventTypeID(uuid.NewString()),
			SectionID:     sectionID,
			Name:          req.EventTypeName,
			DefaultPoints: req.DefaultPoints,
		},
	}
	if err := h.Store.InsertEvent(r.Context(), event); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case rank.IsValidation(err):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case rank.IsNotFound(err):
		writeMessage(w, http.StatusNotFound, err.Error())
	case rank.IsConflict(err):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		h.Log.Error("internal error", "err", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}
