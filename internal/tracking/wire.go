package tracking

import (
	"fmt"

	"github.com/fabriziosardo/AR-Project/internal/geom"
)

// WireObservation is the JSON form of an Observation. Rotation is a
// quaternion in x, y, z, w order.
type WireObservation struct {
	ID       string     `json:"id"`
	Image    string     `json:"image,omitempty"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Quality  string     `json:"quality"`
}

// WireBatch is the JSON form of a Batch.
type WireBatch struct {
	Added   []WireObservation `json:"added,omitempty"`
	Updated []WireObservation `json:"updated,omitempty"`
	Removed []string          `json:"removed,omitempty"`
}

// Decode converts the wire form into a Batch.
func (w WireBatch) Decode() (Batch, error) {
	var b Batch
	var err error

	if b.Added, err = decodeObservations(w.Added); err != nil {
		return Batch{}, fmt.Errorf("added: %w", err)
	}
	if b.Updated, err = decodeObservations(w.Updated); err != nil {
		return Batch{}, fmt.Errorf("updated: %w", err)
	}
	for _, id := range w.Removed {
		if id == "" {
			return Batch{}, fmt.Errorf("removed: empty id")
		}
		b.Removed = append(b.Removed, EntityID(id))
	}
	return b, nil
}

func decodeObservations(in []WireObservation) ([]Observation, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]Observation, 0, len(in))
	for i, w := range in {
		if w.ID == "" {
			return nil, fmt.Errorf("observation %d: empty id", i)
		}
		q, err := ParseQuality(w.Quality)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
		rot := geom.Rotation{Imag: w.Rotation[0], Jmag: w.Rotation[1], Kmag: w.Rotation[2], Real: w.Rotation[3]}
		out = append(out, Observation{
			ID:             EntityID(w.ID),
			ReferenceImage: w.Image,
			Pose:           geom.NewPose(geom.Vec{X: w.Position[0], Y: w.Position[1], Z: w.Position[2]}, rot),
			Quality:        q,
		})
	}
	return out, nil
}

// EncodeBatch converts a Batch into its wire form.
func EncodeBatch(b Batch) WireBatch {
	var w WireBatch
	for _, o := range b.Added {
		w.Added = append(w.Added, encodeObservation(o))
	}
	for _, o := range b.Updated {
		w.Updated = append(w.Updated, encodeObservation(o))
	}
	for _, id := range b.Removed {
		w.Removed = append(w.Removed, string(id))
	}
	return w
}

func encodeObservation(o Observation) WireObservation {
	p, r := o.Pose.Position, o.Pose.Rotation
	return WireObservation{
		ID:       string(o.ID),
		Image:    o.ReferenceImage,
		Position: [3]float64{p.X, p.Y, p.Z},
		Rotation: [4]float64{r.Imag, r.Jmag, r.Kmag, r.Real},
		Quality:  o.Quality.String(),
	}
}
