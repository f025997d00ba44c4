package transform

import (
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// DepthModel converts a raw disparity reading into metric depth. The conversion
// is a per-sensor calibration, not a physical law, so it is always injected.
// Readings outside the calibrated domain yield NaN or Inf rather than an error.
type DepthModel interface {
	DepthFromDisparity(d float64) float64
}

// DepthModelFunc adapts a plain function to a DepthModel.
type DepthModelFunc func(d float64) float64

// DepthFromDisparity calls f(d).
func (f DepthModelFunc) DepthFromDisparity(d float64) float64 {
	return f(d)
}

// InverseDepthModel is z = A / (B - d).
type InverseDepthModel struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// DepthFromDisparity implements DepthModel.
func (m InverseDepthModel) DepthFromDisparity(d float64) float64 {
	return m.A / (m.B - d)
}

// Validate checks the model can produce a finite depth somewhere.
func (m InverseDepthModel) Validate() error {
	if m.A == 0 {
		return errors.New("inverse depth model needs a non-zero a")
	}
	return nil
}

// ReciprocalLinearDepthModel is z = 1 / (Scale*d + Offset).
type ReciprocalLinearDepthModel struct {
	Scale  float64 `json:"scale"`
	Offset float64 `json:"offset"`
}

// DepthFromDisparity implements DepthModel.
func (m ReciprocalLinearDepthModel) DepthFromDisparity(d float64) float64 {
	return 1 / (m.Scale*d + m.Offset)
}

// Validate checks the model is not constant-infinite.
func (m ReciprocalLinearDepthModel) Validate() error {
	if m.Scale == 0 && m.Offset == 0 {
		return errors.New("reciprocal linear depth model needs a non-zero scale or offset")
	}
	return nil
}

// KinectDepthModel is the commonly used first-generation Kinect calibration, in meters.
var KinectDepthModel = ReciprocalLinearDepthModel{Scale: -0.0030711016, Offset: 3.3309495161}

// Names of the built-in depth models.
const (
	InverseDepthModelName          = "inverse"
	ReciprocalLinearDepthModelName = "reciprocal_linear"
	KinectDepthModelName           = "kinect"
)

// DepthModelConstructor builds a depth model from decoded JSON attributes.
type DepthModelConstructor func(attributes map[string]interface{}) (DepthModel, error)

var (
	depthModelsMu sync.RWMutex
	depthModels   = map[string]DepthModelConstructor{}
)

// RegisterDepthModel makes a depth model available by name. It panics on duplicates.
func RegisterDepthModel(name string, constructor DepthModelConstructor) {
	depthModelsMu.Lock()
	defer depthModelsMu.Unlock()
	if _, ok := depthModels[name]; ok {
		panic(errors.Errorf("trying to register two depth models with the same name %q", name))
	}
	depthModels[name] = constructor
}

// RegisteredDepthModels lists the registered model names, sorted.
func RegisteredDepthModels() []string {
	depthModelsMu.RLock()
	defer depthModelsMu.RUnlock()
	names := make([]string, 0, len(depthModels))
	for name := range depthModels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDepthModel constructs the named model from its attributes.
func NewDepthModel(name string, attributes map[string]interface{}) (DepthModel, error) {
	depthModelsMu.RLock()
	constructor, ok := depthModels[name]
	depthModelsMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown depth model %q, expected one of %v", name, RegisteredDepthModels())
	}
	return constructor(attributes)
}

type validator interface {
	Validate() error
}

// decodeDepthModel decodes attributes into T with mapstructure, using the json tags.
func decodeDepthModel[T DepthModel](attributes map[string]interface{}) (DepthModel, error) {
	var conf T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrapf(err, "decoding %T attributes", conf)
	}
	if v, ok := any(conf).(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

func init() {
	RegisterDepthModel(InverseDepthModelName, decodeDepthModel[InverseDepthModel])
	RegisterDepthModel(ReciprocalLinearDepthModelName, decodeDepthModel[ReciprocalLinearDepthModel])
	RegisterDepthModel(KinectDepthModelName, func(attributes map[string]interface{}) (DepthModel, error) {
		if len(attributes) != 0 {
			return nil, errors.Errorf("%s depth model takes no attributes", KinectDepthModelName)
		}
		return KinectDepthModel, nil
	})
}
