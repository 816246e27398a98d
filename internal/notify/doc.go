// Package notify broadcasts terminal queue transitions so UI layers can
// update without rescanning the store. Events fan out on two channels: an
// in-process broadcaster for subscribers in the same process and an
// optional HTTP webhook for other contexts.
package notify
