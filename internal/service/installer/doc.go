// Package installer runs one convergence of a versioned tool on the host.
//
// A run resolves the target artifact, removes stale cached archives, fetches
// and extracts the archive, installs the version reported by the extracted
// executable under <base>/v2/<version>, repoints <base>/v2/current and prunes
// old versions down to the retention count. The stages run strictly in that
// order; install and prune only run after a successful extraction.
package installer
