package paint

import (
	"image"

	"seehuhn.de/go/geom/matrix"
)

// TransformNode is a node of the transform property tree. Matrix maps the
// node's local space into its parent's space.
type TransformNode struct {
	Parent *TransformNode
	Matrix matrix.Matrix

	// DirectCompositing marks a transform that must be composited on its
	// own (3D, animated). Chunks under it are never merged into a layer
	// that sits outside it.
	DirectCompositing bool
}

// ClipNode is a node of the clip property tree. Rect is expressed in the
// space of LocalTransform.
type ClipNode struct {
	Parent         *ClipNode
	LocalTransform *TransformNode
	Rect           image.Rectangle
}

// BlendMode is the compositing operator of an effect node.
type BlendMode uint8

const (
	BlendSourceOver BlendMode = iota
	BlendMultiply
	BlendScreen
)

// EffectNode is a node of the effect property tree.
type EffectNode struct {
	Parent  *EffectNode
	Opacity float32
	Blend   BlendMode
}

var (
	rootTransform = &TransformNode{Matrix: matrix.Identity}
	rootClip      = &ClipNode{LocalTransform: rootTransform, Rect: image.Rect(-1<<30, -1<<30, 1<<30, 1<<30)}
	rootEffect    = &EffectNode{Opacity: 1}
)

// RootTransform returns the root of the transform tree.
func RootTransform() *TransformNode { return rootTransform }

// RootClip returns the root of the clip tree. It clips nothing.
func RootClip() *ClipNode { return rootClip }

// RootEffect returns the root of the effect tree.
func RootEffect() *EffectNode { return rootEffect }

// NewTranslation returns a transform node translating by (dx, dy) relative
// to parent.
func NewTranslation(parent *TransformNode, dx, dy float64) *TransformNode {
	return &TransformNode{Parent: parent, Matrix: matrix.Matrix{1, 0, 0, 1, dx, dy}}
}

// NewClip returns a clip node clipping to r in the space of local.
func NewClip(parent *ClipNode, local *TransformNode, r image.Rectangle) *ClipNode {
	return &ClipNode{Parent: parent, LocalTransform: local, Rect: r}
}

// NewOpacity returns an effect node applying opacity under parent.
func NewOpacity(parent *EffectNode, opacity float32) *EffectNode {
	return &EffectNode{Parent: parent, Opacity: opacity}
}

// IsAncestorOf reports whether n is other or one of its ancestors.
func (n *TransformNode) IsAncestorOf(other *TransformNode) bool {
	for t := other; t != nil; t = t.Parent {
		if t == n {
			return true
		}
	}
	return false
}

// PropertyTreeState is the (transform, clip, effect) triple active when a
// display item was recorded. States compare by node identity with ==.
type PropertyTreeState struct {
	Transform *TransformNode
	Clip      *ClipNode
	Effect    *EffectNode
}

// RootPropertyTreeState returns the state made of the three tree roots.
func RootPropertyTreeState() PropertyTreeState {
	return PropertyTreeState{Transform: rootTransform, Clip: rootClip, Effect: rootEffect}
}

// IsComplete reports whether all three handles are set.
func (s PropertyTreeState) IsComplete() bool {
	return s.Transform != nil && s.Clip != nil && s.Effect != nil
}

// ChunkProperties are the properties shared by all items of a chunk.
type ChunkProperties struct {
	State          PropertyTreeState
	BackfaceHidden bool
}

// RootChunkProperties returns properties with the root state.
func RootChunkProperties() ChunkProperties {
	return ChunkProperties{State: RootPropertyTreeState()}
}

// IsAncestorOf reports whether n is other or one of its ancestors.
func (n *EffectNode) IsAncestorOf(other *EffectNode) bool {
	for e := other; e != nil; e = e.Parent {
		if e == n {
			return true
		}
	}
	return false
}
