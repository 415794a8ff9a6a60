// Package telemetry 初始化 OpenTelemetry SDK，为群体流水线的阶段 span 提供导出。
// 禁用时保持全局 noop Provider，不连接任何外部服务。
package telemetry
