//go:build !portaudio

package capture

// NewMicrophone returns the live input device. Builds without the portaudio
// tag record through an external command.
func NewMicrophone(recordCommand string) Device {
	return NewExecDevice(recordCommand)
}
