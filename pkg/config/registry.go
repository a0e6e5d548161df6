package config

// Persistent state keys (Registry). Values stored under these keys override the file config
// at runtime and survive restarts.
const (
	KeyChannel         = "tracker_channel"
	KeyWandSmoothing   = "wand_smoothing"
	KeyRecorderEnabled = "recorder_enabled"
	KeyCameraYaw       = "camera_yaw"
	KeyCameraPitch     = "camera_pitch"
)

// Keys lists every runtime setting.
var Keys = []string{KeyChannel, KeyWandSmoothing, KeyRecorderEnabled, KeyCameraYaw, KeyCameraPitch}
