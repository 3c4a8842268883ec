package tree

import "time"

const minimumMillisPrecision = int64(1000)

// sanityCheckTimestamp guards against a timestamp that is implausibly far in
// the future (which would otherwise let it win every comparison forever) and
// quantizes real-world millisecond timestamps to whole seconds, since
// filesystem watchers commonly only have second resolution. Literal values
// below 1000ms are left alone so unit tests can use small, easy-to-read
// timestamps without triggering the quantization.
func sanityCheckTimestamp(millis int64, now func() time.Time) int64 {
	nowMillis := now().UnixNano() / int64(time.Millisecond)
	if millis > nowMillis+int64(time.Hour/time.Millisecond) {
		millis = nowMillis - int64(time.Minute/time.Millisecond)
	}
	if millis < minimumMillisPrecision {
		return millis
	}
	return millis / minimumMillisPrecision * minimumMillisPrecision
}

// quantizeModTime applies the same rule invariant (3) of the data model
// requires: modTime is stored quantized to seconds except for literal values
// under 1000ms.
func quantizeModTime(millis int64, now func() time.Time) int64 {
	return sanityCheckTimestamp(millis, now)
}
