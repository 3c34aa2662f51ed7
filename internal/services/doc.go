// Package services implements the business logic layer between the HTTP
// handlers and the record store. The data service aggregates sales and
// refund/cancellation records into the dashboard figures and keeps a short
// lived in-process cache in front of the read-heavy queries.
//
// Services follow the same principles across the codebase:
//
//	1. Interface-driven design for testability
//	2. Context propagation on every blocking call
//	3. Dependency injection for loose coupling
//	4. Errors transformed at the boundary, not swallowed
package services
