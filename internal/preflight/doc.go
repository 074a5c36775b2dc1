// Package preflight provides readiness checks for the filesystem paths,
// job store and external binaries vidpipe depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to start when a required
//     check fails, so a misconfigured host never claims jobs it cannot finish.
//   - The CLI "vidpipe check" command renders the same results and adds
//     CheckDaemon to report whether a daemon is answering on the API bind.
package preflight
