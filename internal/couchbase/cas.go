package couchbase

// CasSetter is implemented by documents that track their CAS value for
// optimistic concurrency control. The wrapper sets it on every Get.
type CasSetter interface {
	SetCas(cas uint64)
}

// Cas can be embedded in document structs to carry the CAS value.
type Cas struct {
	c uint64
}

// GetCas returns the current CAS value.
func (c *Cas) GetCas() uint64 {
	return c.c
}

// SetCas updates the CAS value.
func (c *Cas) SetCas(cas uint64) {
	c.c = cas
}
