// Package process provides a process table backed by the host operating
// system's process list.
//
// Graceful termination means SIGTERM on Unix-like systems. Windows has no
// polite stop signal for arbitrary processes, so Terminate there calls
// TerminateProcess and the grace period only bounds how long the caller waits
// for the exit to be observed. Force escalation on Windows is therefore the
// same primitive issued a second time.
package process
