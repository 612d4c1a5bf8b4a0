/*
Package monitoring provides Prometheus metrics for the channel service.

Three pieces:

  - Metrics: counters recorded by the API layer, read/write outcomes and
    byte totals per channel, resizes, opens.
  - Collector: a prometheus.Collector that snapshots the channel table on
    scrape, exporting capacity, fill level and opener counts as gauges.
  - Middleware: gin middleware timing HTTP requests.

Expose everything via the standard endpoint:

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
