// Package tlsutil 为出站模型服务调用提供加固的 HTTP 客户端（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
