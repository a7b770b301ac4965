// Package encoding turns user compression settings into concrete encoder
// plans.
//
// Quality inputs (0-100) are stored raw and mapped here, at the point of use,
// by pure functions: linearly onto the JPEG quality range for images, inversely
// onto the CRF range for software video, and onto a bitrate for hardware
// encoders. BuildVideoPlans returns an ordered list: the hardware plan (when
// the platform offers one) followed by the software plan for the same
// settings. The caller runs them in order until one produces usable output.
package encoding
