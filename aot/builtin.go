package aot

import (
	"time"

	"github.com/reglet-dev/glimpse/geom"
)

// Closures for the predeclared and geom value types ship with the package so
// that the common members never need a generated file.
func init() {
	registerScalar[bool]()
	registerScalar[string]()
	registerScalar[int]()
	registerScalar[int8]()
	registerScalar[int16]()
	registerScalar[int32]()
	registerScalar[int64]()
	registerScalar[uint]()
	registerScalar[uint8]()
	registerScalar[uint16]()
	registerScalar[uint32]()
	registerScalar[uint64]()
	registerScalar[uintptr]()
	registerScalar[float32]()
	registerScalar[float64]()
	registerScalar[complex64]()
	registerScalar[complex128]()
	registerScalar[any]()
	registerScalar[error]()
	registerScalar[time.Duration]()
	registerScalar[time.Time]()
	registerScalar[geom.Vec2]()
	registerScalar[geom.Vec3]()
	registerScalar[geom.Vec4]()
	registerScalar[geom.Quat]()
	registerScalar[geom.Color]()
	registerScalar[Enum8]()
	registerScalar[Enum16]()
	registerScalar[Enum32]()
	registerScalar[Enum64]()

	Keep(ValueArray[int]())
	Keep(ValueArray[float64]())
	Keep(ValueArray[string]())
	Keep(ValueArray[byte]())
	Keep(List[any]())
	Keep(Dictionary[string, int]())
	Keep(Dictionary[string, string]())
	Keep(Dictionary[string, float64]())
	Keep(Dictionary[string, any]())
}

func registerScalar[V any]() {
	Keep(FieldOf[V]())
	Keep(Getter[V]())
	Keep(Out[V]())
}
