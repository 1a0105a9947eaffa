package shmcam

// Camera sends fixed-size RGBA frames to a named virtual camera.
type Camera struct {
	width   int
	height  int
	device  string
	channel *Channel
}

type cameraOptions struct {
	reg Registry
	cfg Config
}

// CameraOption customizes NewCamera.
type CameraOption func(*cameraOptions)

// WithRegistry resolves the device through reg instead of the host registry.
func WithRegistry(reg Registry) CameraOption {
	return func(o *cameraOptions) {
		o.reg = reg
	}
}

// WithConfig overrides the channel configuration.
func WithConfig(cfg Config) CameraOption {
	return func(o *cameraOptions) {
		o.cfg = cfg
	}
}

// NewCamera resolves device to a channel and returns a camera producing
// width x height frames. The channel is opened lazily by Send.
func NewCamera(width, height int, device string, opts ...CameraOption) (*Camera, error) {
	o := cameraOptions{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	id, err := NewLocator(o.reg).Find(device)
	if err != nil {
		return nil, err
	}
	ch, err := NewChannel(id, RoleProducer, o.cfg)
	if err != nil {
		return nil, err
	}

	log.WithField("device", device).WithField("channel", id).Debug("camera resolved")
	return &Camera{width: width, height: height, device: device, channel: ch}, nil
}

// Device returns the device name the camera was created for.
func (c *Camera) Device() string {
	return c.device
}

// Channel returns the underlying producer channel.
func (c *Camera) Channel() *Channel {
	return c.channel
}

// Send delivers one RGBA frame of width*height*4 bytes, mirrored
// horizontally and resized by the consumer as needed. It returns
// ResultNotReady until the consumer is running.
func (c *Camera) Send(data []byte) (Result, error) {
	// A channel that is still closed makes Send report ResultNotReady.
	c.channel.Open()
	return c.channel.Send(Frame{
		Width:      int32(c.width),
		Height:     int32(c.height),
		Stride:     int32(c.width),
		Format:     FormatUint8,
		ResizeMode: ResizeLinear,
		MirrorMode: MirrorHorizontal,
		Timeout:    DefaultTimeout,
		Payload:    data,
	})
}

// Close releases the channel.
func (c *Camera) Close() error {
	return c.channel.Close()
}
