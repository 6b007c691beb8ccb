package pixelref

// SurfacePolicy selects which view of a GPU surface a GPUPixelRef keeps,
// and whether deep copies keep their render target.
type SurfacePolicy uint8

const (
	// SurfacePolicyAsGiven stores the surface exactly as passed to
	// NewGPUPixelRef. Deep copies keep their render target view, which has
	// no stencil attachment.
	SurfacePolicyAsGiven SurfacePolicy = iota

	// SurfacePolicyPreferTexture stores the texture view of the surface
	// when it has one. Deep copies release their render target view after
	// the copy.
	SurfacePolicyPreferTexture
)

// String returns the policy name.
func (p SurfacePolicy) String() string {
	switch p {
	case SurfacePolicyAsGiven:
		return "AsGiven"
	case SurfacePolicyPreferTexture:
		return "PreferTexture"
	default:
		return "Unknown"
	}
}

// Option configures a GPUPixelRef.
//
// Example:
//
//	ref := pixelref.NewGPUPixelRef(rt, pixelref.WithSurfacePolicy(pixelref.SurfacePolicyPreferTexture))
type Option func(*refOptions)

// refOptions holds optional configuration for GPU pixel refs.
type refOptions struct {
	policy SurfacePolicy
}

// defaultOptions returns the default pixel ref options.
func defaultOptions() refOptions {
	return refOptions{policy: SurfacePolicyAsGiven}
}

// WithSurfacePolicy sets the surface policy. Deep copies inherit it.
func WithSurfacePolicy(p SurfacePolicy) Option {
	return func(o *refOptions) {
		o.policy = p
	}
}
