package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"schoollend/internal/calendar"
	"schoollend/internal/domain"
	"schoollend/internal/export"
	"schoollend/internal/form"
	"schoollend/internal/models"
	"schoollend/internal/service"
	"schoollend/internal/wizard"

	"github.com/gorilla/mux"
)

// View is one navigable page of the front-end.
type View struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

var views = []View{
	{Name: "home", Path: "/"},
	{Name: "catalog", Path: "/catalog"},
	{Name: "admin", Path: "/admin"},
	{Name: "qr-scan", Path: "/qr-scan"},
	{Name: "my-reservations", Path: "/my-reservations"},
	{Name: "help", Path: "/help"},
}

type deviceView struct {
	models.Device
	Badge      string `json:"badge"`
	Reservable bool   `json:"reservable"`
}

func newDeviceView(d models.Device) deviceView {
	return deviceView{Device: d, Badge: d.Badge(), Reservable: d.IsReservable()}
}

type reservationView struct {
	models.Reservation
	PersonalStatus string `json:"personal_status"`
	Days           int    `json:"days"`
}

func newReservationViews(rs []models.Reservation) []reservationView {
	out := make([]reservationView, 0, len(rs))
	for i := range rs {
		out = append(out, reservationView{
			Reservation:    rs[i],
			PersonalStatus: rs[i].Status.Personal(),
			Days:           calendar.DurationDays(rs[i].Range.Start, rs[i].Range.End),
		})
	}
	return out
}

type flowView struct {
	*wizard.Flow
	DurationDays int                   `json:"duration_days"`
	Confirmation *service.Confirmation `json:"confirmation,omitempty"`
}

func newFlowView(f *wizard.Flow) flowView {
	v := flowView{Flow: f, DurationDays: f.Selector.Duration()}
	if f.Step == wizard.StepQR && f.Reservation != nil {
		c := service.NewConfirmation(f.Reservation)
		v.Confirmation = &c
	}
	return v
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ready != nil {
		if err := s.svc.Ready(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"routes": views})
}

func (s *HTTPServer) handleHelp(w http.ResponseWriter, r *http.Request) {
	faq := s.svc.Catalog.FAQ(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"faq": faq})
}

func (s *HTTPServer) handleDevices(w http.ResponseWriter, r *http.Request) {
	q := domain.DeviceQuery{
		Text:     r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}
	devices, err := s.svc.Catalog.ListDevices(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		out = append(out, newDeviceView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": out, "count": len(out)})
}

func (s *HTTPServer) handleDevice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid device id")
		return
	}
	device, err := s.svc.Catalog.GetDevice(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDeviceView(*device))
}

func (s *HTTPServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Catalog.Categories(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *HTTPServer) handleWizardStart(w http.ResponseWriter, r *http.Request) {
	flow, err := s.svc.Wizard.Start(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newFlowView(flow))
}

func (s *HTTPServer) handleWizardGet(w http.ResponseWriter, r *http.Request) {
	flow, err := s.svc.Wizard.Get(r.Context(), mux.Vars(r)["session"])
	s.writeFlow(w, r, flow, err)
}

func (s *HTTPServer) handleWizardDevice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeviceID int64 `json:"device_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if body.DeviceID <= 0 {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}
	flow, err := s.svc.Wizard.SelectDevice(r.Context(), mux.Vars(r)["session"], body.DeviceID)
	s.writeFlow(w, r, flow, err)
}

func (s *HTTPServer) handleWizardClick(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	date, err := models.ParseDay(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	flow, err := s.svc.Wizard.ClickDate(r.Context(), mux.Vars(r)["session"], date)
	s.writeFlow(w, r, flow, err)
}

func (s *HTTPServer) handleWizardResetDates(w http.ResponseWriter, r *http.Request) {
	flow, err := s.svc.Wizard.ResetDates(r.Context(), mux.Vars(r)["session"])
	s.writeFlow(w, r, flow, err)
}

func (s *HTTPServer) handleWizardConfirm(w http.ResponseWriter, r *http.Request) {
	flow, err := s.svc.Wizard.ConfirmDates(r.Context(), mux.Vars(r)["session"])
	s.writeFlow(w, r, flow, err)
}

func (s *HTTPServer) handleWizardSubmit(w http.ResponseWriter, r *http.Request) {
	var applicant models.Applicant
	if err := decodeJSON(r, &applicant); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	flow, err := s.svc.Wizard.Submit(r.Context(), mux.Vars(r)["session"], applicant)
	if err == nil {
		writeJSON(w, http.StatusCreated, newFlowView(flow))
		return
	}
	s.writeFlow(w, r, flow, err)
}

func (s *HTTPServer) handleWizardBack(w http.ResponseWriter, r *http.Request) {
	flow, err := s.svc.Wizard.Back(r.Context(), mux.Vars(r)["session"])
	s.writeFlow(w, r, flow, err)
}

func (s *HTTPServer) handleWizardReset(w http.ResponseWriter, r *http.Request) {
	flow, err := s.svc.Wizard.Reset(r.Context(), mux.Vars(r)["session"])
	s.writeFlow(w, r, flow, err)
}

func (s *HTTPServer) writeFlow(w http.ResponseWriter, r *http.Request, flow *wizard.Flow, err error) {
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFlowView(flow))
}

func (s *HTTPServer) handleFormValidate(w http.ResponseWriter, r *http.Request) {
	var applicant models.Applicant
	if err := decodeJSON(r, &applicant); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	applicant = form.Normalize(applicant)
	writeJSON(w, http.StatusOK, map[string]any{
		"result":   form.Validate(applicant),
		"required": form.RequiredFields(applicant.UserType),
	})
}

func (s *HTTPServer) handleConfirmation(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Reservations.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewConfirmation(res))
}

func (s *HTTPServer) handleQRDownload(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Reservations.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	png := service.PlaceholderQR()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.QRFilename(res.ID)))
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *HTTPServer) handlePersonalList(w http.ResponseWriter, r *http.Request) {
	reservations, err := s.svc.Reservations.PersonalList(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": newReservationViews(reservations)})
}

func (s *HTTPServer) handlePersonalCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.writeAccepted(w, r, id, s.svc.Reservations.RequestCancel(r.Context(), id))
}

func (s *HTTPServer) handlePersonalExtend(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.writeAccepted(w, r, id, s.svc.Reservations.RequestExtend(r.Context(), id))
}

func (s *HTTPServer) adminQuery(r *http.Request) domain.ReservationQuery {
	return domain.ReservationQuery{
		Text:   r.URL.Query().Get("q"),
		Status: r.URL.Query().Get("status"),
	}
}

func (s *HTTPServer) handleAdminList(w http.ResponseWriter, r *http.Request) {
	reservations, err := s.svc.Reservations.AdminList(r.Context(), s.adminQuery(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reservations": newReservationViews(reservations),
		"count":        len(reservations),
		"statuses":     models.AllStatuses(),
	})
}

func (s *HTTPServer) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Reservations.Stats(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	reservations, err := s.svc.Reservations.AdminList(r.Context(), s.adminQuery(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReservations(&buf, reservations); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(s.svc.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	id := mux.Vars(r)["id"]
	status := models.Status(strings.ToLower(strings.TrimSpace(body.Status)))
	s.writeAccepted(w, r, id, s.svc.Reservations.RequestStatusChange(r.Context(), id, status))
}

func (s *HTTPServer) handleAdminLocker(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Locker string `json:"locker"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	id := mux.Vars(r)["id"]
	s.writeAccepted(w, r, id, s.svc.Reservations.AssignLocker(r.Context(), id, body.Locker))
}

func (s *HTTPServer) handleScan(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Scanner.Scan(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleScanLookup(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Scanner.Lookup(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleScanApprove(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	s.writeAccepted(w, r, code, s.svc.Scanner.Approve(r.Context(), code))
}

func (s *HTTPServer) handleScanReject(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	s.writeAccepted(w, r, code, s.svc.Scanner.Reject(r.Context(), code))
}

// writeAccepted answers requests that are only logged, never applied.
func (s *HTTPServer) writeAccepted(w http.ResponseWriter, r *http.Request, id string, err error) {
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"reservation_id": strings.ToUpper(strings.TrimSpace(id)),
		"status":         "requested",
	})
}
