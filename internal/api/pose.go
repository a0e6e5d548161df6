package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"monolithgo/pkg/config"
	"monolithgo/pkg/pose"
	"monolithgo/pkg/tracker"
)

// SnapshotSource provides the latest tracker state.
type SnapshotSource interface {
	Snapshot() tracker.Snapshot
}

// BodyDTO is a tracked body in feet.
type BodyDTO struct {
	Tracked  bool       `json:"tracked"`
	Position [3]float64 `json:"position"`
	View     [3]float64 `json:"view"`
	Up       [3]float64 `json:"up"`
	Right    [3]float64 `json:"right"`
}

// WandDTO adds the wand's inputs.
type WandDTO struct {
	BodyDTO
	Buttons  []bool     `json:"buttons"`
	Joystick [2]float64 `json:"joystick"`
}

// PoseResponse is the API response structure for the latest published pose.
type PoseResponse struct {
	Frame     uint32    `json:"frame"`
	Timestamp float64   `json:"timestamp"`
	Received  time.Time `json:"received"`
	Updates   uint64    `json:"updates"`
	Head      BodyDTO   `json:"head"`
	Wand      WandDTO   `json:"wand"`
}

func arr(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func bodyDTO(b pose.TrackedBody) BodyDTO {
	return BodyDTO{
		Tracked:  b.IsTracked(),
		Position: arr(b.Position()),
		View:     arr(b.View()),
		Up:       arr(b.Up()),
		Right:    arr(b.Right()),
	}
}

func poseResponse(s tracker.Snapshot) PoseResponse {
	return PoseResponse{
		Frame:     s.Frame,
		Timestamp: s.Timestamp,
		Received:  s.Received,
		Updates:   s.Updates,
		Head:      bodyDTO(s.Head),
		Wand: WandDTO{
			BodyDTO:  bodyDTO(s.Wand),
			Buttons:  append([]bool(nil), s.Wand.Buttons[:s.Wand.NumButtons]...),
			Joystick: s.Wand.Joystick,
		},
	}
}

// PoseHandler serves the latest pose and the stereo matrices derived from it.
type PoseHandler struct {
	src     SnapshotSource
	cfgProv config.Provider
	display pose.Display
}

// NewPoseHandler creates a PoseHandler. The display comes from the static config.
func NewPoseHandler(src SnapshotSource, cfg config.Provider) *PoseHandler {
	d := cfg.AppConfig().Display
	return &PoseHandler{
		src:     src,
		cfgProv: cfg,
		display: pose.NewDisplay(pointVec(d.LowerLeft), pointVec(d.LowerRight), pointVec(d.UpperLeft)),
	}
}

func pointVec(p config.Point) r3.Vec {
	x, y, z := p.Vec()
	return r3.Vec{X: x, Y: y, Z: z}
}

func (h *PoseHandler) HandlePose(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, poseResponse(h.src.Snapshot()))
}

// ViewResponse carries column-major matrices ready for upload.
type ViewResponse struct {
	Eye        string      `json:"eye"`
	Tracked    bool        `json:"tracked"`
	View       [16]float64 `json:"view"`
	Projection [16]float64 `json:"projection"`
}

// HandleView returns view and projection matrices for ?eye=left|right|mono. With a tracked
// head the frustum follows the head, otherwise a centered viewer is assumed.
func (h *PoseHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	eye, ok := parseEye(r.URL.Query().Get("eye"))
	if !ok {
		writeError(w, http.StatusBadRequest, "eye must be left, right or mono")
		return
	}

	ctx := r.Context()
	camCfg := h.cfgProv.AppConfig().Camera
	cam := pose.NewCameraAt(h.display, camCfg.Near, camCfg.Far, pointVec(camCfg.Position),
		h.cfgProv.CameraYaw(ctx), h.cfgProv.CameraPitch(ctx))
	if camCfg.IOD > 0 {
		cam.IOD = float64(camCfg.IOD)
	}

	head := h.src.Snapshot().Head
	resp := ViewResponse{Eye: eye.String(), Tracked: head.IsTracked()}
	if head.IsTracked() {
		resp.View = cam.TrackedViewMatrix(eye, head).ColumnMajor()
		resp.Projection = cam.TrackedProjectionMatrix(eye, head).ColumnMajor()
	} else {
		resp.View = cam.ViewMatrix(eye).ColumnMajor()
		resp.Projection = cam.ProjectionMatrix(eye).ColumnMajor()
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseEye(s string) (pose.Eye, bool) {
	switch s {
	case "", "mono":
		return pose.Mono, true
	case "left":
		return pose.Left, true
	case "right":
		return pose.Right, true
	}
	return pose.Mono, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
