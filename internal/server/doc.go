/*
包 server 管理运维端口的 HTTP 服务器生命周期。

Manager 封装 net/http.Server：非阻塞启动、带超时的优雅关闭、
异步错误通道。NewMetricsManager 在同一端口上暴露 Prometheus
/metrics 与 /healthz 存活探针，由命令行入口在启用指标时启动。
*/
package server
