package logging

import (
	"time"
)

// Generic field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

func Component(name string) Field {
	return String("component", name)
}

// Graph and expansion fields

func Address(addr string) Field {
	return String("address", addr)
}

// Key is the expansion key that names a subgraph
func Key(key string) Field {
	return String("key", key)
}

// Source is where a subgraph was loaded from: file path, URL, or cache key
func Source(src string) Field {
	return String("source", src)
}

func RequestID(id string) Field {
	return String("request_id", id)
}

func Alpha(a float64) Field {
	return Float64("alpha", a)
}

func Ticks(n uint64) Field {
	return Uint64("ticks", n)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
