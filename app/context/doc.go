// Package context defines the application context: the set of external
// collaborators (filesystem, environment, logger, time, standard streams)
// injected into commands and components instead of being reached for
// globally.
package context
