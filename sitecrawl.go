// Package sitecrawl provides a single-site crawl engine. It walks a website
// breadth-first from a set of seed URLs, extracts the heading hierarchy,
// body text, links and file references of every page, and persists them
// while skipping the heavy writes for pages whose content has not changed.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, goquery/).
package sitecrawl
