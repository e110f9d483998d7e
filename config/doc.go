// Package config loads the balancer configuration from a JSON file and LB_*
// environment variables and validates it. It defines the listen address,
// health check and rate limit settings, and the backend server list.
package config
