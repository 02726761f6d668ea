// Package preflight provides readiness checks for the Instagram API and the
// filesystem paths that igmirror depends on.
//
// The CLI "igmirror status" command runs RunAll and renders each Result;
// "media fetch" uses the directory checks to fail early before contacting the
// API. TokenStatus summarizes the stored token for the same status views.
package preflight
