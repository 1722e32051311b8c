// Package tone produces the continuous alert tone.
//
// PCMGenerator synthesises a sine wave and streams it to an audio player child
// process, BeepGenerator repeats short system beeps, and Silent records the
// request without producing sound.
package tone
