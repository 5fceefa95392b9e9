// internal/services/fallback.go
package services

// 模型不可用时的备用台词，按亲密度分档
const (
	fallbackGreeting = "（微笑着看向你）你好！是的，这里就是烘焙社的招新摊位。我是苏糖，高一二班的，烘焙社社长。请问你对烘焙感兴趣吗？"
	fallbackPolite   = "（礼貌地点头）嗯，你说得对。我们烘焙社平时会有很多有趣的活动，如果你感兴趣的话，可以留下你的联系方式。"
	fallbackFriendly = "（友好地笑了笑）谢谢你这么说。我很喜欢烘焙，从小就对甜点特别感兴趣。你呢，你平时有什么爱好吗？"
	fallbackWarm     = "（眼睛亮了起来）真的吗？我也觉得我们有很多共同话题！我平时除了烘焙，还喜欢听音乐和阅读。很高兴能和你聊这么多。"
)

// FallbackReply 备用台词。firstTurn 为开场的前几轮
func FallbackReply(closeness float64, firstTurn bool) string {
	switch {
	case firstTurn:
		return fallbackGreeting
	case closeness < 40:
		return fallbackPolite
	case closeness < 70:
		return fallbackFriendly
	default:
		return fallbackWarm
	}
}
