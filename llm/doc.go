/*
包 llm 提供 Agent 群体使用的文本生成接入层。

# 概述

群体共识流程只依赖一个最小协作方 [Generator]：给定提示词、温度与
最大 Token 数，返回一段文本。本包负责把聊天式 [Provider] 适配为
[Generator]，并在调用链上叠加限流、熔断与重试。

# 核心接口

  - [Generator]：同步文本生成，必须可并发调用
  - [GeneratorFunc]：函数适配器，便于测试与组合
  - [Provider]：聊天补全接口，见 providers/openaicompat

# 调用链

[ProviderGenerator] 的调用顺序为：

  rate.Limiter.Wait → circuitbreaker.Call → retry.Do → Provider.Completion

上游持续失败时熔断器打开，后续调用立即返回 circuitbreaker.ErrCircuitOpen，
单个 Agent 的失败不会拖慢整个群体。
*/
package llm
