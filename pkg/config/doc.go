// Package config loads the application configuration.
//
// Configuration is read from a YAML file, then environment variable
// overrides are applied, then the result is validated:
//
//	cfg, err := config.Load("breadcrumbs.yaml")
//
// Each entry under components carries free-form settings that the
// component's factory reads through a [Section]. Section keys are dotted
// paths; both nested YAML maps and literal dotted keys resolve:
//
//	settings:
//	  multicast: { group: 239.0.0.1 }
//	  server.max.timeout-ms: 2000
//
// Environment overrides:
//   - BREADCRUMBS_LOG_LEVEL
//   - BREADCRUMBS_METRICS_ADDRESS
//   - BREADCRUMBS_PROTOCOL_LOG
package config
