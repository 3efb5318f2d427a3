package musac

// DeviceInfo describes one playback or capture device a Backend can
// open (spec.md §6.1).
type DeviceInfo struct {
	Name       string
	ID         string
	IsDefault  bool
	Channels   int
	SampleRate uint32
}

// DeviceCallback is the entry point of the mixer's device callback
// (spec.md §4.7): the backend invokes it on its own real-time thread
// with a packed output buffer to fill.
type DeviceCallback func(out []byte)

// DeviceHandle identifies an open device within a Backend; its
// concrete type is owned by the backend implementation.
type DeviceHandle any

// Backend is the platform audio boundary the core drives (spec.md
// §6.1): every operation a real device or a test double must provide
// to host one or more AudioStreams.
type Backend interface {
	Init() error
	Shutdown() error
	IsInitialized() bool
	Name() string

	EnumerateDevices(playback bool) []DeviceInfo
	DefaultDevice(playback bool) (DeviceInfo, bool)

	// OpenDevice opens deviceID (empty for the default) with the
	// desired spec and returns a handle plus the spec the device
	// actually obtained.
	OpenDevice(deviceID string, desired AudioSpec) (DeviceHandle, AudioSpec, error)
	CloseDevice(handle DeviceHandle) error

	DeviceFormat(handle DeviceHandle) SampleFormat
	DeviceFrequency(handle DeviceHandle) uint32
	DeviceChannels(handle DeviceHandle) int
	DeviceGain(handle DeviceHandle) float32
	SetDeviceGain(handle DeviceHandle, gain float32)

	PauseDevice(handle DeviceHandle) error
	ResumeDevice(handle DeviceHandle) error
	IsDevicePaused(handle DeviceHandle) bool

	// SupportsMute reports whether the backend can mute in hardware;
	// when false the core falls back to zeroing mixer output.
	SupportsMute(handle DeviceHandle) bool
	MuteDevice(handle DeviceHandle) error
	UnmuteDevice(handle DeviceHandle) error
	IsDeviceMuted(handle DeviceHandle) bool

	// CreateStream installs callback as the device's audio source,
	// returning a StreamInterface the core uses to start/stop the
	// callback flow.
	CreateStream(handle DeviceHandle, spec AudioSpec, callback DeviceCallback) (StreamInterface, error)

	SupportsRecording() bool
	MaxOpenDevices() int
}

// StreamInterface is the object a Backend hands back from
// CreateStream (spec.md §6.2). The core drives callback flow with
// BindToDevice+Resume to start and Pause+UnbindFromDevice to stop;
// PutData/GetData/Clear serve the backend's queue mode for backends
// with no callback support, kept for completeness but unused by the
// core's own mixer-callback path.
type StreamInterface interface {
	PutData(data []byte) error
	GetData(out []byte) (int, error)
	Clear()

	Pause() error
	Resume() error
	IsPaused() bool
	QueuedSize() int

	BindToDevice(handle DeviceHandle) error
	UnbindFromDevice() error
}
